package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"jobfolio/web/internal/app"
	"jobfolio/web/internal/archive"
	"jobfolio/web/internal/backend"
	"jobfolio/web/internal/config"
	"jobfolio/web/internal/export"
	"jobfolio/web/internal/gate"
	"jobfolio/web/internal/session"
	"jobfolio/web/internal/store"
)

type ServeCmd struct {
	Addr string `help:"listen address, overrides WEB_ADDR" default:""`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg := config.Load()
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	log := setupLogger(cfg, globals)
	ctx = log.WithContext(ctx)

	var (
		volatile session.Volatile
		checks   []app.Check
		sinks    []export.Sink
		history  app.History
	)

	if cfg.RedisURL != "" {
		redisVolatile, err := session.NewRedisVolatile(cfg.RedisURL, cfg.CookieMaxAge)
		if err != nil {
			return err
		}
		defer redisVolatile.Close()
		volatile = redisVolatile
		checks = append(checks, app.Check{Name: "redis", Ping: redisVolatile.Ping})
		log.Info().Msg("volatile credential store: redis")
	} else {
		volatile = session.NewMemoryVolatile()
		log.Info().Msg("volatile credential store: memory")
	}

	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return err
		}
		historyStore := store.NewHistoryStore(db)
		history = historyStore
		sinks = append(sinks, historyStore)
		checks = append(checks, app.Check{Name: "database", Ping: historyStore.Ping})
	} else {
		log.Info().Msg("DATABASE_URL not set, export history disabled")
	}

	if cfg.MinIOEndpoint != "" {
		archiveSink, err := archive.NewMinIOArchive(ctx, archive.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("artifact archive disabled")
		} else {
			sinks = append(sinks, archiveSink)
		}
	}

	backendClient := backend.NewClient(backend.Options{
		BaseURL: cfg.BackendURL,
		Retries: cfg.BackendRetries,
		Timeout: cfg.BackendTimeout,
	})
	service := app.NewService(backendClient, newExportService(cfg, sinks...), history, checks...)
	resolver := &gate.Resolver{
		Volatile:       volatile,
		Cookies:        session.CookieOptions{MaxAge: cfg.CookieMaxAge, Secure: cfg.CookieSecure},
		ClientIDCookie: cfg.ClientIDCookie,
	}
	httpServer := app.NewHTTPServer(service, resolver, cfg.CORSOrigins, log)
	server := configureHTTPServer(cfg.Addr, httpServer.Handler())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.BackendURL).Str("version", globals.Version).Msg("jobfolio web listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
