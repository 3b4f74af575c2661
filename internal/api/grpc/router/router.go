package router

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/studyvault-server/internal/api/grpc/health"
	"github.com/dtroode/studyvault-server/internal/api/grpc/middleware"
	"github.com/dtroode/studyvault-server/internal/logger"
)

// Router assembles the operational gRPC server.
type Router struct {
	checker *health.Checker
	logger  *logger.Logger
}

// New creates new gRPC Router instance.
func New(checker *health.Checker, logger *logger.Logger) *Router {
	return &Router{
		checker: checker,
		logger:  logger,
	}
}

// Register builds a gRPC server exposing grpc.health.v1 and reflection.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logging.UnaryInterceptors()...),
		grpc.ChainStreamInterceptor(logging.StreamInterceptors()...),
	)
	healthpb.RegisterHealthServer(s, r.checker.Server())
	reflection.Register(s)

	return s
}
