package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/formatter"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

// BatchJob is one merged document to produce from Paths, saved as Name.
type BatchJob struct {
	Name  string
	Paths []string
}

// BatchMergeOpts contains configuration for batch merges.
type BatchMergeOpts struct {
	NumWorkers int                   // Concurrent workers (default: 3, max: 10)
	RateLimit  float64               // Uploads started per second (default: 2)
	Numbering  *models.PageNumbering // Optional page numbering for every job
	Ingest     files.IngestOptions   // Applied when resolving each job's paths
	Manifest   string                // Manifest file name (default: merge_manifest.json)
}

type batchEnvelope struct {
	index int
	job   BatchJob
}

// BatchJobsFromDirs creates one job per directory, named after the directory.
func BatchJobsFromDirs(dirs []string) []BatchJob {
	jobs := make([]BatchJob, 0, len(dirs))
	for _, d := range dirs {
		name := filepath.Base(filepath.Clean(d))
		jobs = append(jobs, BatchJob{Name: name, Paths: []string{d}})
	}
	return jobs
}

// BatchMerge merges several jobs concurrently with rate limiting and progress tracking.
//
// Jobs fail independently; the returned result lists every job in input order and a manifest is written to the output
// directory.
func (e *MergeEngine) BatchMerge(ctx context.Context, prog chan<- ProgressUpdate, jobs []BatchJob, opts BatchMergeOpts) (*models.BatchResult, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no batch jobs", shared.ErrNoFiles)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.Manifest == "" {
		opts.Manifest = "merge_manifest.json"
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &models.BatchResult{
		TotalJobs:       len(jobs),
		OutputDirectory: e.outputDir,
		Results:         make([]models.BatchJobResult, len(jobs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	work := make(chan batchEnvelope, len(jobs))
	done := make(chan batchEnvelope, len(jobs))
	outcomes := make([]models.BatchJobResult, len(jobs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.batchWorker(ctx, &wg, work, done, outcomes, opts)
	}

	go func() {
		defer close(work)
		for i, job := range jobs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, batchStartedUpdate(i+1, len(jobs), job.Name))
			work <- batchEnvelope{index: i, job: job}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	seen := make([]bool, len(jobs))
	completed := 0
	for env := range done {
		completed++
		seen[env.index] = true
		res := outcomes[env.index]
		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, batchCompletedUpdate(completed, len(jobs), res.Name, len(res.Sources)))
		} else {
			result.Failed++
			e.sendProgress(prog, batchFailedUpdate(completed, len(jobs), res.Name, res.Error))
		}
	}

	for i, job := range jobs {
		if !seen[i] {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("job not started")
			}
			outcomes[i] = models.BatchJobResult{Name: outputName(job.Name), Error: err, ErrorText: err.Error()}
			result.Failed++
		}
	}
	copy(result.Results, outcomes)

	manifestPath := filepath.Join(e.outputDir, opts.Manifest)
	if err := formatter.WriteBatchManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// batchWorker merges jobs from the work channel. Each worker writes only its own job's slot in outcomes.
func (e *MergeEngine) batchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	work <-chan batchEnvelope,
	done chan<- batchEnvelope,
	outcomes []models.BatchJobResult,
	opts BatchMergeOpts,
) {
	defer wg.Done()

	for env := range work {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outcomes[env.index] = e.mergeJob(ctx, env.job, opts)
		done <- env
	}
}

// mergeJob resolves and merges a single job.
func (e *MergeEngine) mergeJob(ctx context.Context, job BatchJob, opts BatchMergeOpts) models.BatchJobResult {
	started := time.Now()
	res := models.BatchJobResult{Name: outputName(job.Name)}
	fail := func(err error) models.BatchJobResult {
		res.Error = err
		res.ErrorText = err.Error()
		res.Duration = time.Since(started)
		return res
	}

	ingested := files.Ingest(job.Paths, opts.Ingest)
	for _, r := range ingested.Rejected {
		e.logger.Warn("skipping file", "job", job.Name, "path", r.Path, "err", r.Err)
	}
	if len(ingested.Accepted) == 0 {
		return fail(shared.ErrNoFiles)
	}

	list := files.NewList()
	list.Add(ingested.Accepted...)
	res.Sources = list.Names()

	merged, err := e.execute(ctx, list.Files(), opts.Numbering, res.Name, nil)
	if err != nil {
		return fail(err)
	}

	res.OutputPath = merged.OutputPath
	res.ByteSize = merged.ByteSize
	res.Success = true
	res.Duration = time.Since(started)
	return res
}

func outputName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "merged"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
