// Package health reports store availability over the standard gRPC health protocol.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/studyvault-server/internal/logger"
)

// ServiceName is reported next to the overall ("") status.
const ServiceName = "studyvault"

// Pinger checks that a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker polls a Pinger and mirrors the result into a gRPC health server.
type Checker struct {
	pinger   Pinger
	server   *health.Server
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

func NewChecker(pinger Pinger, interval time.Duration, logger *logger.Logger) *Checker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	c := &Checker{
		pinger:   pinger,
		server:   health.NewServer(),
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Server returns the health service to register on a gRPC server.
func (c *Checker) Server() *health.Server {
	return c.server
}

// Run checks once immediately and then every interval until ctx is done.
// On return every service is marked NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check pings the store once and updates the reported status.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.pinger.Ping(pingCtx); err != nil {
		c.logger.Warn("Health checker: store ping failed", "error", err)
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}

	c.set(healthpb.HealthCheckResponse_SERVING)
	return healthpb.HealthCheckResponse_SERVING
}

func (c *Checker) set(status healthpb.HealthCheckResponse_ServingStatus) {
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
}
