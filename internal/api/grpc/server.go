package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/olyamironova/limitbook/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server bundles the grpc.Server with its health service.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// NewServer registers impl and grpc.health.v1. limiter may be nil.
func NewServer(impl OrderBookServer, limiter *middleware.RateLimiter) *Server {
	chain := []grpc.UnaryServerInterceptor{RequestIDUnary(), RecoverUnary(), AccessLogUnary()}
	if limiter != nil {
		chain = append(chain, RateLimitUnary(limiter))
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))
	RegisterOrderBookServer(srv, impl)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{srv: srv, health: hs}
}

// Serve blocks on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	logger.Info(context.Background(), "grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Run listens on addr and serves.
func (s *Server) Run(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Shutdown marks the service NOT_SERVING and drains in-flight calls, falling
// back to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
		<-done
	}
}
