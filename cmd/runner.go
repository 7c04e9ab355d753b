package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reels/internal/repositories"
	"github.com/desertthunder/reels/internal/services"
	"github.com/desertthunder/reels/internal/shared"
	"github.com/desertthunder/reels/internal/tasks"
	"github.com/desertthunder/reels/internal/upload"
	"github.com/desertthunder/reels/internal/validation"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	db         *sql.DB
	uploads    *repositories.UploadRepository
	validator  *validation.Validator
	manager    *upload.Manager
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.PublishEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.Client
	DB         *sql.DB                // Upload ledger; history and recording are disabled when nil
	Transport  upload.ChunkTransport  // Chunk PUT transport; defaults to HTTP
	Prober     validation.Prober      // Media prober; defaults to ffprobe from config
	Logger     *log.Logger
	Output     io.Writer
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
	if opts.Client == nil {
		store := services.NewFileTokenStore(shared.ExpandHome(opts.Config.API.TokenPath))
		opts.Client = services.NewClient(opts.Config.API, store)
	}
	if opts.Prober == nil {
		opts.Prober = validation.NewFFProbe(opts.Config.Validation.FFProbePath)
	}

	rules, err := validation.RulesFrom(opts.Config.Validation)
	if err != nil {
		opts.Logger.Warn("invalid validation rules, using defaults", "error", err)
		rules = validation.DefaultRules()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		db:         opts.DB,
		validator:  validation.NewValidator(rules, opts.Prober),
		manager:    upload.NewManager(upload.ConfigFrom(opts.Config.Upload), opts.Transport, opts.Logger),
		logger:     opts.Logger,
		output:     opts.Output,
	}

	deps := tasks.EngineDeps{
		Validator: r.validator,
		Manager:   r.manager,
		Uploads:   r.client.Uploads,
		Reels:     r.client.Reels,
		Jobs:      r.client.Jobs,
		API:       r.client.API,
		Polling:   opts.Config.Polling,
		Logger:    opts.Logger,
	}
	if opts.DB != nil {
		r.uploads = repositories.NewUploadRepository(opts.DB)
		deps.Recorder = repositories.NewUploadRecorderAdapter(r.uploads)
	}
	r.engine = tasks.NewPublishEngine(deps)

	return r
}

// SetLogger swaps the logger used by commands, e.g. while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, uploadCommand, jobsCommand, reelsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

// ledger returns the upload repository or an error when no database is configured.
func (r *Runner) ledger() (*repositories.UploadRepository, error) {
	if r.uploads == nil {
		return nil, fmt.Errorf("%w: upload ledger not available, run `reels setup database`", shared.ErrServiceUnavailable)
	}
	return r.uploads, nil
}
