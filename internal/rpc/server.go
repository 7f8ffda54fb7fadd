package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/sanitize"
	"github.com/danielpatrickdp/rulecard-match/internal/service"
)

// #region server
// Server adapts a service.Service to MatchServer.
type Server struct {
	svc      *service.Service
	scrubber *sanitize.Scrubber // nil leaves pass-through texts as authored
	logger   *zap.Logger
}

// NewServer creates a Server. When scrubber is set, report texts are
// sanitised before they leave the process.
func NewServer(svc *service.Service, scrubber *sanitize.Scrubber, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, scrubber: scrubber, logger: logger}
}

// Match decodes the feature set, runs it and returns the report.
func (s *Server) Match(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f, err := features.DecodeMap(in.AsMap())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := s.svc.Match(ctx, f)
	if err != nil {
		return nil, toStatus(err)
	}

	report := out.Report
	if s.scrubber != nil {
		report = sanitize.Report(report, s.scrubber)
	}
	resp, err := reportToStruct(report)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode report: %v", err)
	}
	return resp, nil
}

// #endregion server

// #region grpc-server
// NewGRPCServer builds a grpc.Server carrying MatchService and the standard
// health service, with request logging.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(logInterceptor(srv.logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterMatchServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

func logInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc served", fields...)
		}
		return resp, err
	}
}

// #endregion grpc-server

// #region helpers
// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	var verr *features.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, match.ErrIndexNotBuilt):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func reportToStruct(r match.Report) (*structpb.Struct, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion helpers
