package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatServiceName is the service name reported through grpc.health.v1.
const ChatServiceName = "batepapo.Chat"

// Probe checks that the chat can still reach its storage.
type Probe func(ctx context.Context) error

// HealthServer publishes the chat status over the standard gRPC health protocol
// so orchestrators can probe the process without speaking HTTP.
type HealthServer struct {
	log      *slog.Logger
	grpc     *grpc.Server
	health   *health.Server
	probe    Probe
	interval time.Duration
}

func NewHealthServer(log *slog.Logger, probe Probe, interval time.Duration) *HealthServer {
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ChatServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{log: log, grpc: s, health: hs, probe: probe, interval: interval}
}

// Serve blocks until the listener fails or GracefulStop is called.
func (h *HealthServer) Serve(listener net.Listener) error {
	h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
	if err := h.grpc.Serve(listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Run probes the storage on every tick and flips the serving status accordingly.
func (h *HealthServer) Run(ctx context.Context) error {
	h.check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *HealthServer) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe(ctx); err != nil {
		h.log.Warn("Health probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(ChatServiceName, status)
	h.health.SetServingStatus("", status)
}

// GracefulStop reports NOT_SERVING to every watcher then stops the server.
func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
