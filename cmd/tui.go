package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/shared"
	"github.com/desertthunder/pdfx/internal/ui"
)

// TUI launches the interactive terminal UI for selecting, ordering and merging files.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.applyMergeFlags(cmd)
	numbering, err := r.numbering(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	recorder, release := r.historyRecorder()
	defer release()

	model := ui.NewModel(ctx, r.newEngine(recorder), ui.Options{
		Paths:     cmd.Args().Slice(),
		Numbering: numbering,
		Ingest:    r.ingestOptions(),
		Logger:    fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
