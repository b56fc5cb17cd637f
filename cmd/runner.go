package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundsync/internal/fetcher"
	"github.com/desertthunder/soundsync/internal/repositories"
	"github.com/desertthunder/soundsync/internal/scanner"
	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/desertthunder/soundsync/internal/synclog"
	"github.com/desertthunder/soundsync/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the sync pipeline are built on first use so that commands which never
// touch them (help, setup) do not open a connection.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer

	db         *sql.DB
	users      *repositories.UserRepository
	tracks     *repositories.TrackRepository
	registry   *prometheus.Registry
	metrics    *tasks.Metrics
	dispatcher *tasks.Dispatcher
	progress   chan tasks.ProgressUpdate // Set by interactive commands before the pipeline is built
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	DB       *sql.DB              // Optional pre-opened, migrated database
	Registry *prometheus.Registry // Optional metrics registry
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
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		registry: opts.Registry,
		metrics:  tasks.NewMetrics(opts.Registry),
	}
	if opts.DB != nil {
		r.setDB(opts.DB)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, userCommand, syncCommand, scanCommand, tracksCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by components built after the call.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) setDB(db *sql.DB) {
	r.db = db
	r.users = repositories.NewUserRepository(db)
	r.tracks = repositories.NewTrackRepository(db)
}

// open connects to the configured database and applies pending migrations.
func (r *Runner) open() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	r.setDB(db)
	return nil
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// pipeline returns the sync dispatcher, building it on first use.
func (r *Runner) pipeline() (*tasks.Dispatcher, error) {
	if r.dispatcher != nil {
		return r.dispatcher, nil
	}
	if err := r.open(); err != nil {
		return nil, err
	}

	exec := fetcher.NewExecutor(fetcher.OptionsFromConfig(r.config.Fetcher), shared.WithLogger(r.logger, "component", "fetcher"))
	scan := scanner.New(r.tracks, r.config.Library.Extension, shared.WithLogger(r.logger, "component", "scanner"))
	sink := synclog.New(r.config.Library.LogsDir)

	opts := tasks.DispatcherFromConfig(r.config)
	opts.Metrics = r.metrics
	if r.progress != nil {
		opts.Progress = r.progress
	}

	r.dispatcher = tasks.NewDispatcher(r.users, exec, scan, sink, shared.WithLogger(r.logger, "component", "sync"), opts)
	return r.dispatcher, nil
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

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
