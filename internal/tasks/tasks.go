package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/services"
	"github.com/desertthunder/pdfx/internal/shared"
	"github.com/desertthunder/pdfx/internal/upload"
)

// MergeResult contains the outcome of a successful [MergeEngine.Run].
type MergeResult struct {
	OutputPath  string   // Where the merged document was written
	ByteSize    int64    // Size of the merged document
	FileCount   int      // Number of uploaded files
	SourceNames []string // Uploaded file names in merge order
	RequestID   string   // X-Request-ID of the upload
	IsPDF       bool     // Whether the response sniffed as a PDF
	Record      *models.MergeRecord
}

// MergeRecorder persists merge outcomes.
type MergeRecorder interface {
	RecordMerge(outcome models.MergeOutcome) (*models.MergeRecord, error)
}

// EngineOpts configures a [MergeEngine]. Zero values fall back to defaults.
type EngineOpts struct {
	OutputDir  string             // Directory results are saved in (default ".")
	OutputName string             // File name for results (default generated.pdf)
	Recorder   MergeRecorder      // Optional history store
	Logger     *log.Logger        // Defaults to stderr
	Opener     func(string) error // Called with the saved path when set, e.g. [shared.OpenPath]
}

// MergeEngine uploads selections through a [services.Merger] and saves the results.
type MergeEngine struct {
	merger     services.Merger
	outputDir  string
	outputName string
	recorder   MergeRecorder
	logger     *log.Logger
	opener     func(string) error
}

// NewMergeEngine creates a new MergeEngine with the provided merger.
func NewMergeEngine(merger services.Merger, opts EngineOpts) *MergeEngine {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.OutputName == "" {
		opts.OutputName = upload.DefaultOutputName
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &MergeEngine{
		merger:     merger,
		outputDir:  opts.OutputDir,
		outputName: opts.OutputName,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		opener:     opts.Opener,
	}
}

// OutputName returns the configured result file name.
func (e *MergeEngine) OutputName() string {
	return e.outputName
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MergeEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run merges selected in order and saves the result under the configured output name.
//
// Failures are logged, recorded, and returned wrapping [shared.ErrUploadFailed].
func (e *MergeEngine) Run(ctx context.Context, selected []models.SelectedFile, numbering *models.PageNumbering, progress chan<- ProgressUpdate) (*MergeResult, error) {
	return e.execute(ctx, selected, numbering, e.outputName, progress)
}

// Send uploads files and returns the merged document.
func (e *MergeEngine) Send(ctx context.Context, selected []models.SelectedFile, numbering *models.PageNumbering, onProgress services.ProgressFunc) (*services.MergeResponse, error) {
	if e.merger == nil {
		return nil, fmt.Errorf("%w: merge service not initialized", shared.ErrServiceUnavailable)
	}
	return e.merger.Merge(ctx, selected, numbering, onProgress)
}

// Save writes blob into the output directory under name, de-duplicating the way browsers do, and returns the path.
func (e *MergeEngine) Save(blob models.Blob, name string) (string, int64, error) {
	if blob == nil {
		return "", 0, shared.ErrNothingToSave
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		f    *os.File
		path string
		err  error
	)
	for range 5 {
		path = shared.NextAvailablePath(e.outputDir, name)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	rc, err := blob.Open()
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	n, err := io.Copy(f, rc)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, n, nil
}

// Record persists an outcome when a recorder is configured. Errors are logged and swallowed.
func (e *MergeEngine) Record(outcome models.MergeOutcome) *models.MergeRecord {
	if e.recorder == nil {
		return nil
	}
	rec, err := e.recorder.RecordMerge(outcome)
	if err != nil {
		e.logger.Warn("failed to record merge", "status", outcome.Status, "err", err)
		return nil
	}
	return rec
}

// Open hands a saved path to the configured opener.
func (e *MergeEngine) Open(path string) {
	if e.opener == nil {
		return
	}
	if err := e.opener(path); err != nil {
		e.logger.Warn("failed to open result", "path", path, "err", err)
	}
}

// session guards a machine shared between the caller and the transport's progress callback.
type session struct {
	mu      sync.Mutex
	machine upload.Machine
}

func (s *session) step(fn func(upload.Machine) (upload.Machine, []upload.Effect, error)) ([]upload.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, effects, err := fn(s.machine)
	if err != nil {
		return nil, err
	}
	s.machine = next
	return effects, nil
}

func (s *session) percent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Percent()
}

// execute drives one machine from Start until its effects are exhausted.
func (e *MergeEngine) execute(ctx context.Context, selected []models.SelectedFile, numbering *models.PageNumbering, name string, progress chan<- ProgressUpdate) (*MergeResult, error) {
	s := &session{machine: upload.New(name)}
	queue, err := s.step(func(m upload.Machine) (upload.Machine, []upload.Effect, error) { return m.Start(selected) })
	if err != nil {
		return nil, err
	}

	names := make([]string, len(selected))
	for i, f := range selected {
		names[i] = f.Name()
	}
	result := &MergeResult{FileCount: len(selected), SourceNames: names}
	e.sendProgress(progress, prepareUpdate(len(selected)))

	var failure error
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]

		switch eff := eff.(type) {
		case upload.SendRequest:
			more, err := e.send(ctx, s, eff, numbering, name, result, progress)
			if err != nil {
				return nil, err
			}
			queue = append(queue, more...)

		case upload.SaveResult:
			path, size, err := e.Save(eff.Blob, eff.Name)
			if err != nil {
				e.Record(models.MergeOutcome{Status: models.MergeFailed, SourceNames: names, Error: err.Error()})
				return nil, err
			}
			result.OutputPath = path
			result.ByteSize = size
			e.sendProgress(progress, saveUpdate(path, size))
			result.Record = e.Record(models.MergeOutcome{
				Status:      models.MergeSucceeded,
				SourceNames: names,
				OutputPath:  path,
				ByteSize:    size,
			})
			e.Open(path)

		case upload.LogError:
			e.logger.Error("upload failed", "files", len(selected), "err", eff.Err)

		case upload.ReportFailure:
			failure = eff.Err
			e.sendProgress(progress, failedUpdate(eff.Err))
			result.Record = e.Record(models.MergeOutcome{Status: models.MergeFailed, SourceNames: names, Error: eff.Err.Error()})

		case upload.ClearFiles:
		}
	}

	if failure != nil {
		return nil, failure
	}
	return result, nil
}

func (e *MergeEngine) send(
	ctx context.Context,
	s *session,
	req upload.SendRequest,
	numbering *models.PageNumbering,
	name string,
	result *MergeResult,
	progress chan<- ProgressUpdate,
) ([]upload.Effect, error) {
	last := -1
	onProgress := func(sent, total int64) {
		if _, err := s.step(func(m upload.Machine) (upload.Machine, []upload.Effect, error) {
			return m.Progress(req.Attempt, sent, total)
		}); err != nil {
			return
		}
		if pct := s.percent(); pct != last {
			last = pct
			e.sendProgress(progress, uploadUpdate(pct, len(req.Files)))
		}
	}

	resp, err := e.Send(ctx, req.Files, numbering, onProgress)
	if err != nil {
		return s.step(func(m upload.Machine) (upload.Machine, []upload.Effect, error) { return m.Fail(req.Attempt, err) })
	}

	result.RequestID = resp.RequestID
	result.IsPDF = resp.IsPDF
	blob := files.NewMemFile(name, resp.Body)
	return s.step(func(m upload.Machine) (upload.Machine, []upload.Effect, error) { return m.Complete(req.Attempt, blob) })
}
