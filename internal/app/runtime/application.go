// Package runtime wires the control plane's dependencies and manages the
// operational HTTP endpoint's lifecycle.
package runtime

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nimbus-paas/control_plane/internal/app/cipher"
	"github.com/nimbus-paas/control_plane/internal/app/metrics"
	"github.com/nimbus-paas/control_plane/internal/app/services/apps"
	"github.com/nimbus-paas/control_plane/internal/app/services/bindings"
	"github.com/nimbus-paas/control_plane/internal/app/services/processes"
	"github.com/nimbus-paas/control_plane/internal/app/services/visibility"
	"github.com/nimbus-paas/control_plane/internal/app/storage/postgres"
	"github.com/nimbus-paas/control_plane/internal/config"
	"github.com/nimbus-paas/control_plane/internal/platform/migrations"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// Application wires core dependencies and manages the ops server lifecycle.
type Application struct {
	cfg *config.Config
	log *logger.Logger
	db  *sqlx.DB

	opsServer *http.Server

	AppsSvc       *apps.Service
	ProcessesSvc  *processes.Service
	BindingsSvc   *bindings.Service
	VisibilitySvc *visibility.Service
}

// NewApplication constructs an application instance with default wiring.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	storeOpts := []postgres.Option{}
	if cfg.Database.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.Database.EncryptionKey)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		c, err := cipher.New(key)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialise cipher: %w", err)
		}
		storeOpts = append(storeOpts, postgres.WithCipher(c))
	} else {
		log.Warn("no encryption key configured; environment variables stored in the clear")
	}

	store := postgres.New(db, storeOpts...)

	var scopes visibility.ScopeSource = store
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
		scopes = visibility.NewCachedScopeSource(store, client, ttl, log.Component("visibility-cache"))
		log.Infof("visibility scope cache enabled via redis at %s", cfg.Redis.Addr)
	}

	appsSvc := apps.New(store, store, store, store, store, cfg.Defaults.AppSSHAccess, log.Component("apps"))
	processesSvc := processes.New(store, store, log.Component("processes"))
	bindingsSvc := bindings.New(store, store, log.Component("bindings"))
	visibilitySvc := visibility.New(scopes, store, log.Component("visibility"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return &Application{
		cfg:           cfg,
		log:           log,
		db:            db,
		opsServer:     &http.Server{Addr: cfg.Server.OpsAddr, Handler: mux},
		AppsSvc:       appsSvc,
		ProcessesSvc:  processesSvc,
		BindingsSvc:   bindingsSvc,
		VisibilitySvc: visibilitySvc,
	}, nil
}

// Run starts the ops server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("ops server listening on %s", a.cfg.Server.OpsAddr)
		if err := a.opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the ops server and closes the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.opsServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.db.Close()
}
