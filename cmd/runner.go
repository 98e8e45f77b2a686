package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/repositories"
	"github.com/desertthunder/pdfx/internal/services"
	"github.com/desertthunder/pdfx/internal/shared"
	"github.com/desertthunder/pdfx/internal/tasks"
)

var _ tasks.MergeRecorder = (*repositories.MergeRepository)(nil)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	merger     services.Merger
	recorder   tasks.MergeRecorder
	opener     func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client // Defaults to a client with merge.timeout_seconds
	Logger     *log.Logger
	Output     io.Writer
	Merger     services.Merger     // Overrides the HTTP merge service built from config
	Recorder   tasks.MergeRecorder // Overrides the SQLite history store
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		merger:     opts.Merger,
		recorder:   opts.Recorder,
		opener:     shared.OpenPath,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		mergeCommand, uiCommand, serveCommand, historyCommand, healthCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config when it exists and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger, e.g. to keep log output off the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// applyMergeFlags copies flag overrides into the merge config.
func (r *Runner) applyMergeFlags(cmd *cli.Command) {
	if cmd.IsSet("base-url") {
		r.config.Merge.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("output-dir") {
		r.config.Merge.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("accept-non-pdf") {
		r.config.Merge.AcceptNonPDF = cmd.Bool("accept-non-pdf")
	}
	if cmd.IsSet("open") {
		r.config.Merge.OpenAfterSave = cmd.Bool("open")
	}
}

// numbering resolves page numbering from config and flags. Nil means no numbering fields are sent.
func (r *Runner) numbering(cmd *cli.Command) (*models.PageNumbering, error) {
	cfg := r.config.PageNumbers
	enabled := cfg.Enabled || cmd.Bool("page-numbers") || cmd.IsSet("start") || cmd.IsSet("position")
	if !enabled {
		return nil, nil
	}

	numbering := models.DefaultPageNumbering()
	if cfg.StartingPageNo > 0 {
		numbering.StartingPageNo = cfg.StartingPageNo
	}
	if cmd.IsSet("start") {
		numbering.StartingPageNo = cmd.Int("start")
	}

	position := cfg.Position
	if cmd.IsSet("position") {
		position = cmd.String("position")
	}
	if position != "" {
		pos, err := models.ParsePageNoPosition(position)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		numbering.Position = pos
	}

	if err := numbering.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
	}
	return &numbering, nil
}

func (r *Runner) ingestOptions() files.IngestOptions {
	return files.IngestOptions{AcceptNonPDF: r.config.Merge.AcceptNonPDF}
}

func (r *Runner) mergeService() services.Merger {
	if r.merger != nil {
		return r.merger
	}
	return services.NewMergeServiceFromConfig(r.config.Merge, r.httpClient, r.logger)
}

// openHistory returns the history store and a func releasing it.
func (r *Runner) openHistory() (*repositories.MergeRepository, func(), error) {
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open history database: %w", err)
	}
	return repositories.NewMergeRepository(db), func() { closeDB(db, r.logger) }, nil
}

// historyRecorder is the injected recorder or the SQLite store. History is optional for merging: a store that cannot be
// opened is logged and skipped.
func (r *Runner) historyRecorder() (tasks.MergeRecorder, func()) {
	if r.recorder != nil {
		return r.recorder, func() {}
	}
	repo, closeFn, err := r.openHistory()
	if err != nil {
		r.logger.Warn("merge history disabled", "err", err)
		return nil, closeFn
	}
	return repo, closeFn
}

// newEngine builds a merge engine from the current config.
func (r *Runner) newEngine(recorder tasks.MergeRecorder) *tasks.MergeEngine {
	var opener func(string) error
	if r.config.Merge.OpenAfterSave {
		opener = r.opener
	}
	return tasks.NewMergeEngine(r.mergeService(), tasks.EngineOpts{
		OutputDir:  r.config.Merge.OutputDir,
		OutputName: r.config.Merge.OutputName,
		Recorder:   recorder,
		Logger:     r.logger,
		Opener:     opener,
	})
}

func closeDB(db *sql.DB, logger *log.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "err", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
