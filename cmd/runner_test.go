package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/server"
	"github.com/desertthunder/pdfx/internal/services"
	"github.com/desertthunder/pdfx/internal/shared"
	tu "github.com/desertthunder/pdfx/internal/testing"
)

type stubMerger struct {
	mu       sync.Mutex
	received []string
	err      error
}

func (s *stubMerger) Name() string { return "stub" }

func (s *stubMerger) Merge(ctx context.Context, selected []models.SelectedFile, numbering *models.PageNumbering, onProgress services.ProgressFunc) (*services.MergeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range selected {
		s.received = append(s.received, f.Name())
	}
	if onProgress != nil {
		onProgress(100, 100)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &services.MergeResponse{StatusCode: 200, Body: tu.FakePDF("merged"), IsPDF: true, RequestID: "req-1"}, nil
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []models.MergeOutcome
}

func (s *stubRecorder) RecordMerge(outcome models.MergeOutcome) (*models.MergeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return outcome.Record(len(s.outcomes)), nil
}

type echoMerger struct{}

func (echoMerger) Merge(ctx context.Context, docs []server.Document, numbering *models.PageNumbering) ([]byte, error) {
	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return []byte("%PDF-1.4\n% " + strings.Join(names, ",")), nil
}

// newApp mirrors main's root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name: "pdfx",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.toml"},
			&cli.StringFlag{Name: "log-level"},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"pdfx"}, args...))
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	config := strings.ReplaceAll(string(mustDefaultConfig(t)), `path = "./pdfx.db"`, `path = "`+filepath.Join(dir, "history.db")+`"`)
	return tu.WriteTempFile(t, dir, "config.toml", []byte(config))
}

func mustDefaultConfig(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := shared.CreateConfigFile(path); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}
	return []byte(tu.MustReadFile(t, path))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			merger := &stubMerger{}
			recorder := &stubRecorder{}

			runner := NewRunner(RunnerOpts{
				Config:   config,
				Logger:   logger,
				Output:   output,
				Merger:   merger,
				Recorder: recorder,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.mergeService() != merger {
				t.Error("expected injected merger to be used")
			}
			if rec, _ := runner.historyRecorder(); rec != recorder {
				t.Error("expected injected recorder to be used")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.Merge.OutputName != "generated.pdf" {
				t.Errorf("expected generated.pdf, got %s", runner.config.Merge.OutputName)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("builds HTTP merge service from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Merge.BaseURL = "http://merge.test"

			svc := runner.mergeService()
			if !strings.HasPrefix(svc.Name(), "http://merge.test") {
				t.Errorf("expected service for merge.test, got %s", svc.Name())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := map[string]bool{"merge": false, "ui": false, "serve": false, "history": false, "health": false, "setup": false}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			want[cmd.Name] = true
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected command %q to be registered", name)
			}
		}
	})
}

func TestNumbering(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		enabled  bool
		want     *models.PageNumbering
		errCheck error
	}{
		{name: "disabled by default", args: nil, want: nil},
		{name: "flag enables defaults", args: []string{"--page-numbers"}, want: &models.PageNumbering{StartingPageNo: 1, Position: models.TopLeft}},
		{name: "start implies numbering", args: []string{"--start", "7"}, want: &models.PageNumbering{StartingPageNo: 7, Position: models.TopLeft}},
		{name: "position flag", args: []string{"--position", "BOTTOM_RIGHT"}, want: &models.PageNumbering{StartingPageNo: 1, Position: models.BottomRight}},
		{name: "enabled in config", enabled: true, want: &models.PageNumbering{StartingPageNo: 1, Position: models.TopLeft}},
		{name: "bad position", args: []string{"--position", "middle"}, errCheck: shared.ErrInvalidFlag},
		{name: "bad start", args: []string{"--start", "0"}, errCheck: shared.ErrInvalidFlag},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard)})
			runner.config.PageNumbers.Enabled = tc.enabled

			var (
				got *models.PageNumbering
				err error
			)
			cmd := &cli.Command{
				Name:  "t",
				Flags: mergeFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					got, err = runner.numbering(c)
					return nil
				},
			}
			if runErr := cmd.Run(context.Background(), append([]string{"t"}, tc.args...)); runErr != nil {
				t.Fatalf("run failed: %v", runErr)
			}

			if tc.errCheck != nil {
				if !errors.Is(err, tc.errCheck) {
					t.Errorf("expected %v, got %v", tc.errCheck, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if got != nil && *got != *tc.want {
				t.Errorf("expected %+v, got %+v", *tc.want, *got)
			}
		})
	}
}

func TestMergeCommand(t *testing.T) {
	t.Run("merges in argument order", func(t *testing.T) {
		dir := t.TempDir()
		a := tu.WriteTempFile(t, dir, "in/a.pdf", tu.FakePDF("a"))
		b := tu.WriteTempFile(t, dir, "in/b.pdf", tu.FakePDF("b"))
		out := filepath.Join(dir, "out")

		merger := &stubMerger{}
		recorder := &stubRecorder{}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard), Merger: merger, Recorder: recorder})

		if err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"), "merge", "-o", out, b, a); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		if got := strings.Join(merger.received, ","); got != "b.pdf,a.pdf" {
			t.Errorf("expected b.pdf,a.pdf got %s", got)
		}
		tu.AssertFileExists(t, filepath.Join(out, "generated.pdf"))
		if !strings.Contains(output.String(), "Merge Complete!") {
			t.Errorf("expected summary, got %s", output.String())
		}
		if len(recorder.outcomes) != 1 || recorder.outcomes[0].Status != models.MergeSucceeded {
			t.Errorf("expected one succeeded outcome, got %+v", recorder.outcomes)
		}
	})

	t.Run("json output", func(t *testing.T) {
		dir := t.TempDir()
		a := tu.WriteTempFile(t, dir, "a.pdf", tu.FakePDF("a"))

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard), Merger: &stubMerger{}, Recorder: &stubRecorder{}})

		if err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"), "merge", "--json", "-o", dir, a); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		var summary mergeSummary
		if err := json.Unmarshal(output.Bytes(), &summary); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if summary.FileCount != 1 || summary.RequestID != "req-1" || summary.Sequence != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("through the local merge service", func(t *testing.T) {
		dir := t.TempDir()
		a := tu.WriteTempFile(t, dir, "a.pdf", tu.FakePDF("a"))
		b := tu.WriteTempFile(t, dir, "b.pdf", tu.FakePDF("b"))

		srv := httptest.NewServer(server.NewMergeRouter(echoMerger{}, log.New(io.Discard), "test", server.MergeHandlerOpts{}))
		defer srv.Close()

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard), Recorder: &stubRecorder{}})
		if err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"), "merge", "--base-url", srv.URL, "-o", dir, a, b); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		got := tu.MustReadFile(t, filepath.Join(dir, "generated.pdf"))
		if !strings.HasSuffix(got, "a.pdf,b.pdf") {
			t.Errorf("expected merged a.pdf,b.pdf, got %q", got)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		dir := t.TempDir()
		a := tu.WriteTempFile(t, dir, "a.pdf", tu.FakePDF("a"))
		recorder := &stubRecorder{}
		runner := NewRunner(RunnerOpts{
			Output:   &bytes.Buffer{},
			Logger:   log.New(io.Discard),
			Merger:   &stubMerger{err: errors.New("connection refused")},
			Recorder: recorder,
		})

		err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"), "merge", "-o", dir, a)
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Fatalf("expected ErrUploadFailed, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, "generated.pdf")); !os.IsNotExist(statErr) {
			t.Error("expected nothing saved")
		}
		if len(recorder.outcomes) != 1 || recorder.outcomes[0].Status != models.MergeFailed {
			t.Errorf("expected one failed outcome, got %+v", recorder.outcomes)
		}
	})

	t.Run("no arguments", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard), Merger: &stubMerger{}})
		err := runApp(t, runner, "--config", filepath.Join(t.TempDir(), "missing.toml"), "merge")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("only non-PDF files", func(t *testing.T) {
		dir := t.TempDir()
		txt := tu.WriteTempFile(t, dir, "notes.txt", []byte("just text"))
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard), Merger: &stubMerger{}, Recorder: &stubRecorder{}})

		err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"), "merge", "-o", dir, txt)
		if !errors.Is(err, shared.ErrNoFiles) {
			t.Errorf("expected ErrNoFiles, got %v", err)
		}
	})

	t.Run("batch", func(t *testing.T) {
		dir := t.TempDir()
		tu.WriteTempFile(t, dir, "one/a.pdf", tu.FakePDF("a"))
		tu.WriteTempFile(t, dir, "one/b.pdf", tu.FakePDF("b"))
		tu.WriteTempFile(t, dir, "two/c.pdf", tu.FakePDF("c"))
		out := filepath.Join(dir, "out")

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard), Merger: &stubMerger{}, Recorder: &stubRecorder{}})

		err := runApp(t, runner, "--config", filepath.Join(dir, "missing.toml"),
			"merge", "--batch", "--rate", "100", "-o", out, filepath.Join(dir, "one"), filepath.Join(dir, "two"))
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(out, "one.pdf"))
		tu.AssertFileExists(t, filepath.Join(out, "two.pdf"))
		tu.AssertFileExists(t, filepath.Join(out, "merge_manifest.json"))
		if !strings.Contains(output.String(), "2 succeeded, 0 failed") {
			t.Errorf("unexpected output %s", output.String())
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	a := tu.WriteTempFile(t, dir, "a.pdf", tu.FakePDF("a"))

	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard), Merger: &stubMerger{}})
	if err := runApp(t, runner, "--config", configPath, "merge", "-o", dir, a); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})
		if err := runApp(t, runner, "--config", configPath, "history", "list", "--format", "json"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}

		var records []map[string]any
		if err := json.Unmarshal(output.Bytes(), &records); err != nil {
			t.Fatalf("expected JSON, got %q: %v", output.String(), err)
		}
		if len(records) != 1 || records[0]["status"] != "succeeded" {
			t.Errorf("unexpected records %v", records)
		}
	})

	t.Run("list rejects bad status", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})
		err := runApp(t, runner, "--config", configPath, "history", "list", "--status", "pending")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("delete by sequence", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})
		if err := runApp(t, runner, "--config", configPath, "history", "delete", "1"); err != nil {
			t.Fatalf("history delete failed: %v", err)
		}

		output := &bytes.Buffer{}
		runner = NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})
		if err := runApp(t, runner, "--config", configPath, "history", "list", "--format", "json"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if strings.TrimSpace(output.String()) != "[]" {
			t.Errorf("expected empty history, got %q", output.String())
		}
	})

	t.Run("delete unknown", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})
		err := runApp(t, runner, "--config", configPath, "history", "delete", "42")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})
	if err := runApp(t, runner, "--config", "config.toml", "setup"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "pdfx.db"))
	if !strings.Contains(output.String(), "schema v") {
		t.Errorf("unexpected output %q", output.String())
	}
}
