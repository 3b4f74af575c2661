package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/studyvault-server/internal/api/http/handler"
	"github.com/dtroode/studyvault-server/internal/api/http/middleware"
	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// Services are the operations the HTTP API exposes.
type Services struct {
	Auth      handler.AuthService
	Tokens    middleware.TokenService
	Sessions  middleware.SessionResolver
	Directory handler.DirectoryService
	Access    handler.AccessService
	Ledger    handler.LedgerService
	Documents handler.DocumentService
	Store     handler.Pinger
}

// Options tune request handling.
type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// Router wires handlers and middleware onto a chi mux.
type Router struct {
	services       Services
	opts           Options
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(services Services, opts Options, contextManager model.ContextManager, logger *logger.Logger) *Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Router{
		services:       services,
		opts:           opts,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the handler tree.
func (rt *Router) Register() http.Handler {
	logging := middleware.NewLogging(rt.logger)
	authenticate := middleware.NewAuthenticate(rt.services.Tokens, rt.services.Sessions, rt.contextManager, rt.logger)
	requireAdmin := middleware.RequireAdmin(rt.contextManager)

	authHandler := handler.NewAuth(rt.services.Auth, rt.logger)
	profileHandler := handler.NewProfile(rt.services.Directory, rt.contextManager, rt.logger)
	documentHandler := handler.NewDocument(rt.services.Documents, rt.contextManager, rt.logger, rt.opts.MaxUploadBytes)
	adminHandler := handler.NewAdmin(rt.services.Directory, rt.services.Access, rt.services.Ledger, rt.contextManager, rt.logger)
	healthHandler := handler.NewHealth(rt.services.Store, rt.logger)

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		logging.Handle,
		chimiddleware.Recoverer,
		chimiddleware.Timeout(rt.opts.RequestTimeout),
	)

	r.Get("/healthz", healthHandler.Healthz)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate.Handle)

		r.Get("/me", profileHandler.Me)
		r.Patch("/me", profileHandler.UpdateMe)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentHandler.List)
			r.Post("/", documentHandler.Upload)
			r.Get("/facets", documentHandler.Facets)
			r.Get("/{id}", documentHandler.Get)
			r.Delete("/{id}", documentHandler.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(requireAdmin).Get("/users", adminHandler.ListUsers)
			r.With(requireAdmin).Get("/admins", adminHandler.ListAdmins)
			r.With(requireAdmin).Get("/activity", adminHandler.Activity)

			r.Post("/admins", adminHandler.Promote)
			r.Delete("/admins/{id}", adminHandler.Demote)
			r.Put("/users/{id}/admin", adminHandler.SetAdminStatus)
			r.Delete("/users/{id}", adminHandler.DeleteAccount)
		})
	})

	return r
}
