// Package grpcserver runs the gRPC side-car: the standard health service
// behind logging and recovery interceptors.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service entry reported for the auth subsystem.
const ServiceName = "talentgate.auth"

// Options configure the side-car.
type Options struct {
	Logger *zap.Logger
	// Reflection enables server reflection (dev only).
	Reflection bool
}

// Server wraps grpc.Server together with its health registry.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds the side-car. It starts NOT_SERVING until SetServing or Watch
// reports otherwise.
func New(o Options) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		srv:    grpc.NewServer(grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log))),
		health: health.NewServer(),
		log:    log,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	if o.Reflection {
		reflection.Register(s.srv)
	}
	s.SetServing(false)
	return s
}

// SetServing flips the overall and per-service health status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Watch runs check every interval and mirrors the result into the health
// status until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	probe := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(cctx)
		if err != nil {
			s.log.Warn("health probe failed", zap.Error(err))
		}
		s.SetServing(err == nil)
	}
	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			probe()
		}
	}
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error { return s.srv.Serve(lis) }

// Shutdown reports NOT_SERVING and stops gracefully, forcing the stop after timeout.
func (s *Server) Shutdown(timeout time.Duration) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.srv.Stop()
	}
}
