package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/server"
	"github.com/desertthunder/pdfx/internal/services"
	"github.com/desertthunder/pdfx/internal/shared"
)

// Serve runs the local merge service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	router := server.NewMergeRouter(&server.PDFCPUMerger{}, r.logger, version, server.MergeHandlerOpts{
		FieldName:  r.config.Merge.FieldName,
		OutputName: r.config.Merge.OutputName,
		MaxBytes:   cfg.MaxUploadBytes(),
	})

	srv := server.NewServer(cfg.Addr(), router, r.logger)
	r.writePlain("Merge service on http://%s%s\n", srv.Addr(), r.config.Merge.Endpoint)
	return srv.Run(ctx)
}

// Health checks that the configured merge service answers GET /health.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	r.applyMergeFlags(cmd)

	svc := services.NewMergeServiceFromConfig(r.config.Merge, r.httpClient, r.logger)
	status, err := svc.Health(ctx)
	if err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("%w: %s reported %q", shared.ErrServiceUnavailable, svc.Name(), status.Status)
	}

	r.writePlain("✓ %s is up (version %s)\n", svc.Name(), status.Version)
	return nil
}
