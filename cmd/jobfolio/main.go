package main

import (
	"context"

	"github.com/alecthomas/kong"

	"jobfolio/web/cmd/jobfolio/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug logging."`
		Version kong.VersionFlag
		Serve   commands.ServeCmd   `cmd:"" help:"Start the web tier (pages, session gate and export API)"`
		Export  commands.ExportCmd  `cmd:"" help:"Export a document JSON file to PDF or DOCX"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply or roll back export history migrations"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("jobfolio"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
