package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"jobfolio/web/internal/config"
	"jobfolio/web/internal/export"
)

// ExportCmd runs the export pipeline on a local document file.
type ExportCmd struct {
	In     string `help:"document JSON file ({title, questions[]})" required:"" type:"existingfile"`
	Format string `help:"output format" default:"pdf" enum:"pdf,docx"`
	Out    string `help:"output directory" default:"." type:"path"`
}

func (c *ExportCmd) Run(ctx context.Context, globals *Globals) error {
	cfg := config.Load()
	log := setupLogger(cfg, globals)
	ctx = log.WithContext(ctx)

	raw, err := os.ReadFile(c.In)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	var doc export.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	res, err := newExportService(cfg).Export(ctx, export.Request{Document: doc, Format: export.Format(c.Format)})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	target := filepath.Join(c.Out, res.Filename)
	if err := os.WriteFile(target, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	log.Info().Str("file", target).Int("bytes", len(res.Data)).Int("pages", res.Pages).Msg("exported")
	return nil
}
