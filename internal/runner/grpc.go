package runner

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCRunner holds a connection to a gRPC runner deployment.
// It does NOT implement Runner because gRPC runners use generated
// clients instead of the generic JSON request; callers get the
// connection via Conn() and use their generated client, while this
// type owns dialing and health probing.
type GRPCRunner struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn
	health   healthpb.HealthClient
}

// NewGRPCRunner dials a gRPC runner endpoint.
func NewGRPCRunner(ctx context.Context, name, endpoint string) (*GRPCRunner, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc runner %s: %w", target, err)
	}

	return &GRPCRunner{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
		health:   healthpb.NewHealthClient(conn),
	}, nil
}

// Name identifies the runner.
func (r *GRPCRunner) Name() string {
	return r.name
}

// Conn returns the underlying gRPC connection for generated clients.
func (r *GRPCRunner) Conn() *grpc.ClientConn {
	return r.conn
}

// Healthy probes the runner's standard gRPC health service.
func (r *GRPCRunner) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := r.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("runner health check failed: %w", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("runner not serving: %s", resp.Status)
	}
	return nil
}

// Close tears down the connection.
func (r *GRPCRunner) Close() error {
	return r.conn.Close()
}
