package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/shared"
	"github.com/desertthunder/pdfx/internal/tasks"
)

// mergeSummary is the JSON shape printed by merge --json.
type mergeSummary struct {
	OutputPath  string   `json:"output_path"`
	ByteSize    int64    `json:"byte_size"`
	FileCount   int      `json:"file_count"`
	SourceNames []string `json:"source_names"`
	RequestID   string   `json:"request_id"`
	Sequence    int      `json:"sequence,omitempty"`
}

// Merge uploads the files given as arguments, in order, and saves the merged document.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or directory", shared.ErrMissingArgument)
	}

	r.applyMergeFlags(cmd)
	numbering, err := r.numbering(cmd)
	if err != nil {
		return err
	}

	recorder, release := r.historyRecorder()
	defer release()
	engine := r.newEngine(recorder)

	if cmd.Bool("batch") {
		return r.batchMerge(ctx, cmd, engine, paths, tasks.BatchMergeOpts{
			NumWorkers: cmd.Int("workers"),
			RateLimit:  cmd.Float("rate"),
			Numbering:  numbering,
			Ingest:     r.ingestOptions(),
		})
	}

	res := files.Ingest(paths, r.ingestOptions())
	for _, rej := range res.Rejected {
		r.logger.Warn("skipping file", "path", rej.Path, "err", rej.Err)
	}

	list := files.NewList()
	list.Add(res.Accepted...)
	if list.Len() == 0 {
		return fmt.Errorf("%w: none of the %d path(s) could be added", shared.ErrNoFiles, len(paths))
	}

	r.logger.Info("starting merge", "files", list.Len(), "output", engine.OutputName())
	asJSON := cmd.Bool("json")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := r.printProgress(progressCh, asJSON)

	result, err := engine.Run(ctx, list.Files(), numbering, progressCh)
	close(progressCh)
	printed.Wait()

	if err != nil {
		return err
	}

	summary := mergeSummary{
		OutputPath:  result.OutputPath,
		ByteSize:    result.ByteSize,
		FileCount:   result.FileCount,
		SourceNames: result.SourceNames,
		RequestID:   result.RequestID,
	}
	if result.Record != nil {
		summary.Sequence = result.Record.Sequence()
	}
	if asJSON {
		return r.writeJSON(summary, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Merge Complete!")
	r.writePlain("Files: %d\n", summary.FileCount)
	for i, name := range summary.SourceNames {
		r.writePlain("  %d. %s\n", i+1, name)
	}
	r.writePlain("Saved: %s (%s)\n", summary.OutputPath, shared.FormatBytes(summary.ByteSize))
	if !result.IsPDF {
		r.writePlain("Warning: the service response does not look like a PDF\n")
	}
	return nil
}

// printProgress writes updates as they arrive. Upload percentages are printed in steps of ten.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate, quiet bool) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lastDecile := -1
		for update := range progressCh {
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.Upload:
				if decile := update.Step / 10; decile != lastDecile || update.Step == 0 {
					lastDecile = decile
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.Prepare, tasks.Save, tasks.Batch:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()
	return &wg
}

func (r *Runner) batchMerge(ctx context.Context, cmd *cli.Command, engine *tasks.MergeEngine, dirs []string, opts tasks.BatchMergeOpts) error {
	jobs := tasks.BatchJobsFromDirs(dirs)
	asJSON := cmd.Bool("json")

	r.logger.Info("starting batch merge", "jobs", len(jobs), "workers", opts.NumWorkers)

	progressCh := make(chan tasks.ProgressUpdate, 100)
	printed := r.printProgress(progressCh, asJSON)

	result, err := engine.BatchMerge(ctx, progressCh, jobs, opts)
	close(progressCh)
	printed.Wait()

	if result == nil {
		return err
	}
	if asJSON {
		if werr := r.writeJSON(result, true); werr != nil {
			return werr
		}
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Batch Merge Complete!")
	r.writePlain("Jobs: %d succeeded, %d failed (of %d)\n", result.Succeeded, result.Failed, result.TotalJobs)
	for _, job := range result.Results {
		if job.Success {
			r.writePlain("  ✓ %s: %d files → %s\n", job.Name, len(job.Sources), job.OutputPath)
		} else {
			r.writePlain("  ✗ %s: %s\n", job.Name, job.ErrorText)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return err
}
