package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/formatter"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

// HistoryList prints recorded merges, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	status := cmd.String("status")
	if status != "" && status != string(models.MergeSucceeded) && status != string(models.MergeFailed) {
		return fmt.Errorf("%w: status must be %s or %s", shared.ErrInvalidFlag, models.MergeSucceeded, models.MergeFailed)
	}

	repo, release, err := r.openHistory()
	if err != nil {
		return err
	}
	defer release()

	records, err := repo.List(map[string]any{
		"status":       status,
		"newest_first": true,
		"limit":        cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	out, err := formatter.FormatHistory(records, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// HistoryDelete removes one recorded merge, addressed by sequence number or ID.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: sequence number or id", shared.ErrMissingArgument)
	}

	repo, release, err := r.openHistory()
	if err != nil {
		return err
	}
	defer release()

	id := ref
	if seq, convErr := strconv.Atoi(ref); convErr == nil {
		record, err := repo.GetBySequence(seq)
		if err != nil && !errors.Is(err, shared.ErrRecordNotFound) {
			return err
		}
		if record != nil {
			id = record.ID()
		}
	}

	if err := repo.Delete(id); err != nil {
		return err
	}

	r.logger.Info("deleted merge record", "ref", ref)
	r.writePlain("✓ Deleted merge %s\n", ref)
	return nil
}
