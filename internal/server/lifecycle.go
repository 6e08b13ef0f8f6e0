// Package server runs the game server's long-lived components and stops them
// in reverse order on a signal, a component failure, or context cancellation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is a long-running component.
type Service interface {
	// Start blocks until the service stops or fails.
	Start() error
	// Stop asks the service to stop. Start must return soon after.
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts services in registration order and stops them in reverse.
type Lifecycle struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration
	services        []namedService
	mu              sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle. Each service gets shutdownTimeout to stop
// before it is abandoned; zero means wait forever.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, shutdownTimeout time.Duration) *Lifecycle {
	return &Lifecycle{logger: logger, shutdownTimeout: shutdownTimeout}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until SIGINT/SIGTERM, ctx is done or a
// service fails.
//
// Postcondition: every service has been asked to stop. Returns the first
// service failure, or nil for a requested shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		if !l.stop(ns.service) {
			l.logger.Warn("service did not stop in time",
				zap.String("service", ns.name),
				zap.Duration("timeout", l.shutdownTimeout),
			)
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}

// stop reports whether svc.Stop returned within the shutdown timeout.
func (l *Lifecycle) stop(svc Service) bool {
	if l.shutdownTimeout <= 0 {
		svc.Stop()
		return true
	}
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(l.shutdownTimeout):
		return false
	}
}

// GRPCService serves a grpc.Server on a TCP address.
type GRPCService struct {
	addr    string
	srv     *grpc.Server
	health  *health.Server
	logger  *zap.Logger
	timeout time.Duration

	mu  sync.Mutex
	lis net.Listener
}

// NewGRPCService wraps srv. On Stop the health status flips to NOT_SERVING
// and in-flight calls get timeout to drain before the server is stopped hard.
//
// Precondition: srv, hs and logger must be non-nil.
func NewGRPCService(addr string, srv *grpc.Server, hs *health.Server, logger *zap.Logger, timeout time.Duration) *GRPCService {
	return &GRPCService{addr: addr, srv: srv, health: hs, logger: logger, timeout: timeout}
}

// Start listens on the configured address and serves until Stop.
func (g *GRPCService) Start() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	return g.Serve(lis)
}

// Serve serves on lis until Stop.
func (g *GRPCService) Serve(lis net.Listener) error {
	g.mu.Lock()
	g.lis = lis
	g.mu.Unlock()
	g.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := g.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Addr returns the bound address, or nil before Start.
func (g *GRPCService) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lis == nil {
		return nil
	}
	return g.lis.Addr()
}

// Stop drains in-flight calls, then stops the server.
func (g *GRPCService) Stop() {
	g.health.Shutdown()
	done := make(chan struct{})
	go func() {
		g.srv.GracefulStop()
		close(done)
	}()
	if g.timeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(g.timeout):
		g.logger.Warn("graceful stop timed out, forcing", zap.Duration("timeout", g.timeout))
		g.srv.Stop()
		<-done
	}
}

// Compile-time check.
var _ Service = (*GRPCService)(nil)

// HealthStatus reports the serving status health advertises for service.
func HealthStatus(hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}
