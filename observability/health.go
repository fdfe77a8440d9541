package observability

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service name.
const ServiceName = "ticketbot.Gateway"

// HealthServer exposes grpc.health.v1 for the bot process. The gateway service
// reports SERVING only while the Discord session is connected.
type HealthServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewHealthServer creates the gRPC server with the health service registered.
func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{addr: addr, server: srv, health: hs, logger: logger}
}

// Start listens on the configured address.
func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	go func() {
		h.logger.Info("health server listening", zap.String("addr", h.addr))
		if err := h.server.Serve(lis); err != nil {
			h.logger.Error("health server stopped", zap.Error(err))
		}
	}()
	return nil
}

// SetServing flips the gateway status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
}

// Status returns the current gateway status.
func (h *HealthServer) Status() healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.Status
}

// Stop shuts the server down gracefully.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
