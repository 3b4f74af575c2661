package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtroode/studyvault-server/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/studyvault-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/studyvault-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/studyvault-server/internal/api/http/context"
	httprouter "github.com/dtroode/studyvault-server/internal/api/http/router"
	httpserver "github.com/dtroode/studyvault-server/internal/api/http/server"
	"github.com/dtroode/studyvault-server/internal/model"
	"github.com/dtroode/studyvault-server/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the gRPC health service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("starting studyvault",
		"version", buildVersion,
		"commit", buildCommit,
		"database", cfg.Database.Driver,
		"storage", cfg.Storage.Backend)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		_ = st.close()
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	notifier, closeNotifier, err := openNotifier(cfg, log)
	if err != nil {
		_ = closeAll(closeBlobs, st.close)
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer func() {
		if err := closeAll(closeNotifier, closeBlobs, st.close); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	svc := newServices(cfg, st, blobs, notifier, log)

	handler := httprouter.New(httprouter.Services{
		Auth:      svc.auth,
		Tokens:    svc.tokens,
		Sessions:  svc.session,
		Directory: svc.directory,
		Access:    svc.access,
		Ledger:    svc.ledger,
		Documents: svc.documents,
		Store:     st,
	}, httprouter.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	}, httpctx.NewManager(), log).Register()

	checker := health.NewChecker(st, cfg.GRPC.HealthInterval, log)
	go checker.Run(ctx)

	servers := []struct {
		srv model.Server
		sl  model.SecurityLayer
	}{
		{
			srv: httpserver.NewHTTPServer(handler, ":"+cfg.HTTP.Port),
			sl:  server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		},
		{
			srv: grpcserver.NewGRPCServer(grpcrouter.New(checker, log).Register(), ":"+cfg.GRPC.Port),
			sl:  server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName),
		},
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			log.Info("starting server", "server", s.Name(), "address", s.Address())
			if err := s.Start(sl); err != nil {
				log.Error("server stopped unexpectedly", "server", s.Name(), "error", err)
				stop()
			}
		}(s.srv, s.sl)
	}

	<-ctx.Done()
	log.Info("received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if err := s.srv.Stop(shutdownCtx); err != nil {
			log.Error("error during server shutdown", "server", s.srv.Name(), "error", err)
		}
	}

	wg.Wait()
	log.Info("shutdown complete")
	return nil
}
