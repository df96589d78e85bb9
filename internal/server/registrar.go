package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/talenthub/internal/app"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// ServiceName is the health-check name reported for the API.
const ServiceName = "talenthub.api"

// HealthRegistrar exposes grpc.health.v1 and keeps the API's status in
// step with its database.
type HealthRegistrar struct {
	appCtx *app.AppContext
	Server *health.Server
}

func NewHealthRegistrar(appCtx *app.AppContext) *HealthRegistrar {
	return &HealthRegistrar{appCtx: appCtx, Server: health.NewServer()}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.Server)
	h.Server.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Check pings the database once and updates the reported status.
func (h *HealthRegistrar) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	sqlDB, err := h.appCtx.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.appCtx.Logger.Warn("database ping failed", "err", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.Server.SetServingStatus(ServiceName, status)
	h.Server.SetServingStatus("", status)
	return status
}

// Watch runs Check every interval until ctx ends, then marks everything
// NOT_SERVING.
func (h *HealthRegistrar) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Server.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}
