package grpc

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name of the user sync server.
const ServiceName = "clerksync.UserSync"

// HealthServiceArgs are the mandatory args to instantiate the HealthService.
type HealthServiceArgs struct {
	// Probe reports whether the dependencies of the service are reachable.
	Probe probe
}

// HealthServiceOptArgs are the optional arguments for building a HealthService
type HealthServiceOptArgs = func(*HealthService)

// WithInterval sets how often the probe is invoked.
func WithInterval(interval time.Duration) HealthServiceOptArgs {
	return func(h *HealthService) {
		h.interval = interval
	}
}

// WithProbeTimeout bounds a single probe invocation.
func WithProbeTimeout(timeout time.Duration) HealthServiceOptArgs {
	return func(h *HealthService) {
		h.timeout = timeout
	}
}

// NewHealthService creates a new HealthService. Until the first probe completes every service reports NOT_SERVING.
func NewHealthService(args HealthServiceArgs, optArgs ...HealthServiceOptArgs) *HealthService {
	h := &HealthService{
		server:   health.NewServer(),
		probe:    args.Probe,
		interval: 10 * time.Second,
		timeout:  2 * time.Second,
	}
	for _, opt := range optArgs {
		opt(h)
	}
	h.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return h
}

// HealthService implements grpc.health.v1.Health backed by a periodic dependency probe.
type HealthService struct {
	server   *health.Server
	probe    probe
	interval time.Duration
	timeout  time.Duration
}

// Register adds the health service to s.
func (h *HealthService) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

// Check runs the probe once and publishes the resulting status.
func (h *HealthService) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if h.probe != nil {
		if err := h.probe.Ping(ctx); err != nil {
			log.WithError(err).Warn("health probe failed")
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	h.setStatus(status)
	return status
}

// Watch probes periodically until ctx is cancelled, then reports NOT_SERVING for good.
func (h *HealthService) Watch(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *HealthService) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	// the empty name is the overall server status queried by /healthz
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// NewServer builds a gRPC server exposing health and reflection.
func NewServer(h *HealthService, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	h.Register(s)
	reflection.Register(s)
	return s
}

type probe interface {
	// Ping checks a dependency is reachable.
	Ping(ctx context.Context) error
}
