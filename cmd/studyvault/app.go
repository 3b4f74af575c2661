package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/studyvault-server/database"
	"github.com/dtroode/studyvault-server/internal/config"
	"github.com/dtroode/studyvault-server/internal/events/rabbitmq"
	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
	"github.com/dtroode/studyvault-server/internal/repository/memory"
	"github.com/dtroode/studyvault-server/internal/repository/postgres"
	"github.com/dtroode/studyvault-server/internal/service"
	"github.com/dtroode/studyvault-server/internal/storage/gcs"
	"github.com/dtroode/studyvault-server/internal/storage/minio"
	"github.com/dtroode/studyvault-server/internal/token"
)

// stores groups the repositories of one database backend.
type stores struct {
	tx            model.Transactor
	profiles      model.ProfileStore
	documents     model.DocumentStore
	activity      model.ActivityStore
	credentials   model.CredentialStore
	refreshTokens model.RefreshTokenStore
	ping          func(ctx context.Context) error
	close         func() error
}

func (s *stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		store := memory.New()
		return &stores{
			tx:            store,
			profiles:      store.Profiles(),
			documents:     store.Documents(),
			activity:      store.Activity(),
			credentials:   store.Credentials(),
			refreshTokens: store.RefreshTokens(),
			ping:          store.Ping,
			close:         store.Close,
		}, nil
	default:
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, cfg.Database.DSN); err != nil {
				return nil, err
			}
		}

		conn, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			tx:            conn,
			profiles:      postgres.NewProfileRepository(conn),
			documents:     postgres.NewDocumentRepository(conn),
			activity:      postgres.NewActivityRepository(conn),
			credentials:   postgres.NewCredentialRepository(conn),
			refreshTokens: postgres.NewRefreshTokenRepository(conn),
			ping:          conn.Ping,
			close:         conn.Close,
		}, nil
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (model.BlobStore, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := gcs.New(ctx, cfg.GCS, cfg.Storage.URLExpiry)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		client, err := minio.New(ctx, cfg.Minio, cfg.Storage.URLExpiry)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}
}

// openNotifier returns a nil notifier when RabbitMQ is not configured.
func openNotifier(cfg *config.Config, log *logger.Logger) (model.ActivityNotifier, func() error, error) {
	if cfg.RabbitMQ.URL == "" {
		log.Info("activity notifications disabled")
		return nil, func() error { return nil }, nil
	}

	notifier, err := rabbitmq.New(cfg.RabbitMQ)
	if err != nil {
		return nil, nil, err
	}
	return notifier, notifier.Close, nil
}

type services struct {
	tokens    *service.TokenService
	auth      *service.Auth
	ledger    *service.Ledger
	directory *service.Directory
	session   *service.Session
	access    *service.Access
	documents *service.Documents
}

func newServices(cfg *config.Config, st *stores, blobs model.BlobStore, notifier model.ActivityNotifier, log *logger.Logger) *services {
	opts := service.Options{
		Timeout:        cfg.Access.Timeout,
		SymmetricAudit: cfg.Access.SymmetricAudit,
	}

	tokens := service.NewTokenService(
		token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		st.refreshTokens,
		log,
		cfg.JWT.RefreshTTL,
	)
	auth := service.NewAuth(st.tx, st.credentials, tokens, log, 0)
	ledger := service.NewLedger(st.activity, notifier, log)

	return &services{
		tokens:    tokens,
		auth:      auth,
		ledger:    ledger,
		directory: service.NewDirectory(st.profiles, log, opts),
		session:   service.NewSession(st.profiles, log, opts),
		access:    service.NewAccess(st.tx, ledger, auth, log, opts),
		documents: service.NewDocuments(st.tx, st.documents, blobs, ledger, log, opts),
	}
}

// closeAll runs every closer and joins their errors.
func closeAll(closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func requirePostgres(cfg *config.Config, command string) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("%s requires the %s database driver", command, config.DriverPostgres)
	}
	return nil
}
