package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
)

// #region client-struct
// Client wraps the gRPC connection to a MatchService.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to a MatchService at addr. Extra dial options are
// appended after the insecure transport credentials.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion constructor

// #region match
// Match sends f and decodes the returned report.
func (c *Client) Match(ctx context.Context, f features.FeatureSet) (match.Report, error) {
	m, err := f.ToMap()
	if err != nil {
		return match.Report{}, err
	}
	req, err := structpb.NewStruct(m)
	if err != nil {
		return match.Report{}, fmt.Errorf("encode request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, matchMethod, req, resp); err != nil {
		return match.Report{}, fmt.Errorf("match rpc: %w", err)
	}

	data, err := protojson.Marshal(resp)
	if err != nil {
		return match.Report{}, fmt.Errorf("decode response: %w", err)
	}
	var report match.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return match.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

// #endregion match

// #region health
// Healthy reports whether the server marks MatchService as serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health rpc: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// #endregion health
