package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/services"
	"github.com/desertthunder/pdfx/internal/shared"
	tu "github.com/desertthunder/pdfx/internal/testing"
)

type mockMerger struct {
	mu        sync.Mutex
	body      []byte
	err       error
	steps     [][2]int64
	calls     int
	received  [][]string
	numbering []*models.PageNumbering
}

func (m *mockMerger) Name() string { return "mock" }

func (m *mockMerger) Merge(ctx context.Context, selected []models.SelectedFile, numbering *models.PageNumbering, onProgress services.ProgressFunc) (*services.MergeResponse, error) {
	m.mu.Lock()
	m.calls++
	names := make([]string, len(selected))
	for i, f := range selected {
		names[i] = f.Name()
	}
	m.received = append(m.received, names)
	m.numbering = append(m.numbering, numbering)
	steps, body, err := m.steps, m.body, m.err
	m.mu.Unlock()

	if onProgress != nil {
		for _, s := range steps {
			onProgress(s[0], s[1])
		}
	}
	if err != nil {
		return nil, err
	}
	_, ok := files.DetectPDF(body)
	return &services.MergeResponse{StatusCode: 200, Body: body, RequestID: "req-1", IsPDF: ok}, nil
}

type mockRecorder struct {
	mu       sync.Mutex
	outcomes []models.MergeOutcome
	err      error
}

func (r *mockRecorder) RecordMerge(o models.MergeOutcome) (*models.MergeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.outcomes = append(r.outcomes, o)
	return o.Record(len(r.outcomes)), nil
}

func selection(names ...string) []models.SelectedFile {
	l := files.NewList()
	for _, n := range names {
		l.Add(files.NewMemFile(n, tu.FakePDF(n)))
	}
	return l.Files()
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestMergeEngine_Run(t *testing.T) {
	t.Run("three files end in a single saved document", func(t *testing.T) {
		dir := t.TempDir()
		merged := tu.FakePDFOfSize(10 * 1024 * 1024)
		merger := &mockMerger{
			body:  merged,
			steps: [][2]int64{{0, 400}, {100, 400}, {200, 400}, {300, 400}, {400, 400}},
		}
		recorder := &mockRecorder{}
		engine := NewMergeEngine(merger, EngineOpts{OutputDir: dir, Recorder: recorder, Logger: quietLogger()})

		progress := make(chan ProgressUpdate, 100)
		result, err := engine.Run(context.Background(), selection("a.pdf", "b.pdf", "c.pdf"), nil, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := filepath.Join(dir, "generated.pdf")
		if result.OutputPath != want {
			t.Errorf("expected %s, got %s", want, result.OutputPath)
		}
		if result.ByteSize != int64(len(merged)) {
			t.Errorf("expected %d bytes, got %d", len(merged), result.ByteSize)
		}
		if result.FileCount != 3 || result.RequestID != "req-1" || !result.IsPDF {
			t.Errorf("unexpected result %+v", result)
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected exactly one saved file, got %d", len(entries))
		}

		var percents []int
		for _, u := range drain(progress) {
			if u.Phase == Upload {
				percents = append(percents, u.Step)
			}
		}
		if got := percents; len(got) != 5 || got[0] != 0 || got[4] != 100 {
			t.Errorf("expected upload progress 0..100 in 5 steps, got %v", got)
		}

		if len(recorder.outcomes) != 1 || recorder.outcomes[0].Status != models.MergeSucceeded {
			t.Fatalf("expected one succeeded outcome, got %+v", recorder.outcomes)
		}
		if result.Record == nil || result.Record.OutputPath() != want {
			t.Error("expected result to carry the stored record")
		}
	})

	t.Run("files are sent in list order with numbering", func(t *testing.T) {
		merger := &mockMerger{body: tu.FakePDF("m")}
		engine := NewMergeEngine(merger, EngineOpts{OutputDir: t.TempDir(), Logger: quietLogger()})

		l := files.NewList()
		added := l.Add(files.NewMemFile("a.pdf", nil), files.NewMemFile("b.pdf", nil), files.NewMemFile("c.pdf", nil))
		l.Reorder(added[2].ID, added[0].ID)

		numbering := &models.PageNumbering{StartingPageNo: 5, Position: models.TopRight}
		if _, err := engine.Run(context.Background(), l.Files(), numbering, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := strings.Join(merger.received[0], ","); got != "c.pdf,a.pdf,b.pdf" {
			t.Errorf("expected c.pdf,a.pdf,b.pdf, got %s", got)
		}
		if merger.numbering[0] != numbering {
			t.Error("expected numbering to be passed through")
		}
	})

	t.Run("failure saves nothing and wraps ErrUploadFailed", func(t *testing.T) {
		dir := t.TempDir()
		var logs bytes.Buffer
		merger := &mockMerger{err: errors.New("connection refused"), steps: [][2]int64{{50, 100}}}
		recorder := &mockRecorder{}
		engine := NewMergeEngine(merger, EngineOpts{OutputDir: dir, Recorder: recorder, Logger: log.New(&logs)})

		sel := selection("a.pdf", "b.pdf")
		_, err := engine.Run(context.Background(), sel, nil, nil)
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Fatalf("expected ErrUploadFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected cause in error, got %v", err)
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected nothing saved, got %d files", len(entries))
		}
		if !strings.Contains(logs.String(), "upload failed") {
			t.Errorf("expected error to be logged, got %q", logs.String())
		}
		if len(recorder.outcomes) != 1 || recorder.outcomes[0].Status != models.MergeFailed {
			t.Errorf("expected one failed outcome, got %+v", recorder.outcomes)
		}
		if len(sel) != 2 {
			t.Error("expected selection to be untouched")
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		engine := NewMergeEngine(&mockMerger{}, EngineOpts{Logger: quietLogger()})
		if _, err := engine.Run(context.Background(), nil, nil, nil); !errors.Is(err, shared.ErrNoFiles) {
			t.Errorf("expected ErrNoFiles, got %v", err)
		}
	})

	t.Run("nil merger", func(t *testing.T) {
		engine := NewMergeEngine(nil, EngineOpts{OutputDir: t.TempDir(), Logger: quietLogger()})
		_, err := engine.Run(context.Background(), selection("a.pdf"), nil, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("recorder errors are swallowed", func(t *testing.T) {
		merger := &mockMerger{body: tu.FakePDF("m")}
		engine := NewMergeEngine(merger, EngineOpts{
			OutputDir: t.TempDir(),
			Recorder:  &mockRecorder{err: errors.New("disk full")},
			Logger:    quietLogger(),
		})

		result, err := engine.Run(context.Background(), selection("a.pdf"), nil, nil)
		if err != nil {
			t.Fatalf("expected success despite recorder error, got %v", err)
		}
		if result.Record != nil {
			t.Error("expected no record")
		}
	})

	t.Run("opens the saved file when configured", func(t *testing.T) {
		var opened string
		engine := NewMergeEngine(&mockMerger{body: tu.FakePDF("m")}, EngineOpts{
			OutputDir: t.TempDir(),
			Logger:    quietLogger(),
			Opener:    func(p string) error { opened = p; return nil },
		})

		result, err := engine.Run(context.Background(), selection("a.pdf"), nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opened != result.OutputPath {
			t.Errorf("expected %s to be opened, got %q", result.OutputPath, opened)
		}
	})
}

func TestMergeEngine_Save(t *testing.T) {
	t.Run("de-duplicates like a browser download", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewMergeEngine(nil, EngineOpts{OutputDir: dir, Logger: quietLogger()})
		blob := files.NewMemFile("generated.pdf", []byte("%PDF-1.4"))

		for _, want := range []string{"generated.pdf", "generated-2.pdf", "generated-3.pdf"} {
			path, size, err := engine.Save(blob, "generated.pdf")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.Base(path) != want {
				t.Errorf("expected %s, got %s", want, filepath.Base(path))
			}
			if size != 8 {
				t.Errorf("expected 8 bytes, got %d", size)
			}
		}
	})

	t.Run("creates the output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		engine := NewMergeEngine(nil, EngineOpts{OutputDir: dir, Logger: quietLogger()})

		path, _, err := engine.Save(files.NewMemFile("x", []byte("x")), "generated.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
	})

	t.Run("nil blob", func(t *testing.T) {
		engine := NewMergeEngine(nil, EngineOpts{OutputDir: t.TempDir(), Logger: quietLogger()})
		if _, _, err := engine.Save(nil, "generated.pdf"); !errors.Is(err, shared.ErrNothingToSave) {
			t.Errorf("expected ErrNothingToSave, got %v", err)
		}
	})
}

func TestMergeEngine_BatchMerge(t *testing.T) {
	setup := func(t *testing.T) (string, []BatchJob) {
		t.Helper()
		src := t.TempDir()
		tu.WriteTempFile(t, src, "chapters/01.pdf", tu.FakePDF("01"))
		tu.WriteTempFile(t, src, "chapters/02.pdf", tu.FakePDF("02"))
		tu.WriteTempFile(t, src, "appendix/a.pdf", tu.FakePDF("a"))
		tu.WriteTempFile(t, src, "empty/readme.txt", []byte("nothing"))

		return src, BatchJobsFromDirs([]string{
			filepath.Join(src, "chapters"),
			filepath.Join(src, "appendix"),
			filepath.Join(src, "empty"),
		})
	}

	t.Run("merges each job and writes a manifest", func(t *testing.T) {
		_, jobs := setup(t)
		out := t.TempDir()
		merger := &mockMerger{body: tu.FakePDF("merged")}
		engine := NewMergeEngine(merger, EngineOpts{OutputDir: out, Logger: quietLogger()})

		progress := make(chan ProgressUpdate, 100)
		result, err := engine.BatchMerge(context.Background(), progress, jobs, BatchMergeOpts{NumWorkers: 2, RateLimit: 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.TotalJobs != 3 || result.Succeeded != 2 || result.Failed != 1 {
			t.Errorf("unexpected totals %+v", result)
		}
		if result.Results[0].Name != "chapters.pdf" || !result.Results[0].Success {
			t.Errorf("unexpected first result %+v", result.Results[0])
		}
		if got := strings.Join(result.Results[0].Sources, ","); got != "01.pdf,02.pdf" {
			t.Errorf("expected sources in name order, got %s", got)
		}
		if !errors.Is(result.Results[2].Error, shared.ErrNoFiles) {
			t.Errorf("expected ErrNoFiles for empty job, got %v", result.Results[2].Error)
		}

		tu.AssertFileExists(t, filepath.Join(out, "chapters.pdf"))
		tu.AssertFileExists(t, filepath.Join(out, "appendix.pdf"))
		tu.AssertFileExists(t, result.ManifestPath)

		var batchUpdates int
		for _, u := range drain(progress) {
			if u.Phase == Batch {
				batchUpdates++
			}
		}
		if batchUpdates != 6 {
			t.Errorf("expected 6 batch updates (started and finished per job), got %d", batchUpdates)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		_, jobs := setup(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewMergeEngine(&mockMerger{body: tu.FakePDF("m")}, EngineOpts{OutputDir: t.TempDir(), Logger: quietLogger()})
		result, err := engine.BatchMerge(ctx, nil, jobs, BatchMergeOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Succeeded != 0 || result.Failed != 3 {
			t.Errorf("expected every job to fail, got %+v", result)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		_, jobs := setup(t)
		engine := NewMergeEngine(&mockMerger{body: tu.FakePDF("m")}, EngineOpts{OutputDir: t.TempDir(), Logger: quietLogger()})

		start := time.Now()
		if _, err := engine.BatchMerge(context.Background(), nil, jobs[:2], BatchMergeOpts{RateLimit: 10}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected the second job to wait for the limiter, took %s", elapsed)
		}
	})

	t.Run("no jobs", func(t *testing.T) {
		engine := NewMergeEngine(&mockMerger{}, EngineOpts{Logger: quietLogger()})
		if _, err := engine.BatchMerge(context.Background(), nil, nil, BatchMergeOpts{}); !errors.Is(err, shared.ErrNoFiles) {
			t.Errorf("expected ErrNoFiles, got %v", err)
		}
	})
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "chapters", want: "chapters.pdf"},
		{in: "report.PDF", want: "report.PDF"},
		{in: " ", want: "merged.pdf"},
		{in: ".", want: "merged.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := outputName(tt.in); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	engine := NewMergeEngine(nil, EngineOpts{Logger: quietLogger()})
	progress := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		engine.sendProgress(progress, prepareUpdate(1))
		engine.sendProgress(nil, prepareUpdate(1))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendProgress blocked on a full channel")
	}
}
