package commands

import (
	"context"
	"errors"

	"jobfolio/web/internal/config"
	"jobfolio/web/internal/store"
)

type MigrateCmd struct {
	Down bool   `help:"roll back every migration instead of applying"`
	Dir  string `help:"migrations directory, overrides MIGRATIONS_DIR" default:""`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	cfg := config.Load()
	log := setupLogger(cfg, globals)
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	dir := cfg.MigrationsDir
	if c.Dir != "" {
		dir = c.Dir
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Down {
		if err := store.RollbackMigrations(ctx, db, dir); err != nil {
			return err
		}
		log.Info().Str("dir", dir).Msg("migrations rolled back")
		return nil
	}
	if err := store.ApplyMigrations(ctx, db, dir); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("migrations applied")
	return nil
}
