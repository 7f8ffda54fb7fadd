package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name, also used as the
// health-check service key.
const ServiceName = "rulematch.v1.MatchService"

const matchMethod = "/" + ServiceName + "/Match"

// #region service-desc
// MatchServer is the server API of MatchService. Requests carry a feature
// set and responses a match report, both as google.protobuf.Struct.
type MatchServer interface {
	Match(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterMatchServer registers srv on s.
func RegisterMatchServer(s grpc.ServiceRegistrar, srv MatchServer) {
	s.RegisterService(&matchServiceDesc, srv)
}

var matchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Match", Handler: matchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulematch/v1/match.proto",
}

func matchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchServer).Match(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: matchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchServer).Match(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
