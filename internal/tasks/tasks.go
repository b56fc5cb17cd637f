// package tasks implements the per-user library sync pipeline.
//
// The core abstraction is the [Dispatcher], which turns sync requests into isolated jobs and
// runs them on a bounded worker pool.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/soundsync/internal/fetcher"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/scanner"
	"github.com/desertthunder/soundsync/internal/shared"
)

const (
	DefaultWorkers    = 2
	DefaultQueueSize  = 64
	DefaultThumbnails = "thumbnails"
	maxWorkers        = 16
)

// Fetcher downloads a source URL into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, dir, url string, onEvent func(fetcher.Event)) (*fetcher.Result, error)
}

// Scanner records the audio files of a directory as tracks.
type Scanner interface {
	Scan(ctx context.Context, req scanner.Request, logf scanner.Logf) (*scanner.Result, error)
}

// UserStore is the subset of the user repository the pipeline reads and writes.
type UserStore interface {
	ListEligible(ctx context.Context) ([]*models.User, error)
	UpdateLastSync(ctx context.Context, id string, at time.Time) (bool, error)
}

// JobLog receives the durable, human-readable job log.
type JobLog interface {
	Append(username, message string) error
}

// Outcome is the closed set of ways a job can end.
type Outcome int

const (
	Succeeded Outcome = iota
	SkippedNoSource
	FetchTimeout
	FetchFailed
	ScanFailed
	StateFailed
	Panicked
	Canceled
	Busy
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case SkippedNoSource:
		return "skipped_no_source"
	case FetchTimeout:
		return "fetch_timeout"
	case FetchFailed:
		return "fetch_failed"
	case ScanFailed:
		return "scan_failed"
	case StateFailed:
		return "state_failed"
	case Panicked:
		return "panicked"
	case Canceled:
		return "canceled"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts against the user in a batch.
//
// Skipped and busy jobs are not failures: nothing was attempted.
func (o Outcome) Failed() bool {
	switch o {
	case Succeeded, SkippedNoSource, Busy:
		return false
	default:
		return true
	}
}

// Job is one ephemeral sync run for a single user. It is never persisted.
type Job struct {
	ID        string
	UserID    string
	Username  string
	SourceURL string
	StartedAt time.Time
}

// NewJob creates a [Job] for user against sourceURL.
func NewJob(user *models.User, sourceURL string) Job {
	return Job{
		ID:        shared.GenerateID(),
		UserID:    user.ID(),
		Username:  user.Username(),
		SourceURL: strings.TrimSpace(sourceURL),
	}
}

// JobResult is what a finished job reports.
type JobResult struct {
	Job      Job
	Outcome  Outcome
	Err      error
	Fetch    *fetcher.Result
	Scan     *scanner.Result
	LastSync *time.Time
	Duration time.Duration
}

// DispatcherOpts contains configuration for a [Dispatcher].
type DispatcherOpts struct {
	LibraryRoot    string                // Per-user directories live under this root
	ThumbnailsName string                // Name of the artwork directory inside each user directory
	Workers        int                   // Concurrent jobs (default: 2)
	QueueSize      int                   // Pending triggered jobs (default: 64)
	RateLimit      float64               // Job starts per second, 0 for unlimited
	Progress       chan<- ProgressUpdate // Optional progress sink
	Metrics        *Metrics              // Optional metrics
	Now            func() time.Time      // Clock for last sync (default: time.Now)
}

// DispatcherFromConfig maps the [sync] and [library] config sections to [DispatcherOpts].
func DispatcherFromConfig(c *shared.Config) DispatcherOpts {
	return DispatcherOpts{
		LibraryRoot:    c.Library.Root,
		ThumbnailsName: c.Library.ThumbnailsName,
		Workers:        c.Sync.Workers,
		QueueSize:      c.Sync.QueueSize,
		RateLimit:      c.Sync.RateLimit,
	}
}

// Dispatcher runs sync jobs: fetch, then scan, then state update.
type Dispatcher struct {
	users  UserStore
	fetch  Fetcher
	scan   Scanner
	sink   JobLog
	logger *log.Logger
	opts   DispatcherOpts

	queue   chan Job
	limiter *rate.Limiter

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewDispatcher creates a [Dispatcher]. Workers are not started until [Dispatcher.Start].
func NewDispatcher(users UserStore, f Fetcher, s Scanner, sink JobLog, logger *log.Logger, opts DispatcherOpts) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.ThumbnailsName == "" {
		opts.ThumbnailsName = DefaultThumbnails
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Dispatcher{
		users:    users,
		fetch:    f,
		scan:     s,
		sink:     sink,
		logger:   logger,
		opts:     opts,
		queue:    make(chan Job, opts.QueueSize),
		limiter:  rate.NewLimiter(limit, 1),
		inflight: make(map[string]struct{}),
	}
}

// UserDir returns the library directory for username.
func (d *Dispatcher) UserDir(username string) string {
	return filepath.Join(d.opts.LibraryRoot, shared.SafeName(username))
}

// ThumbnailDir returns the artwork directory for username.
func (d *Dispatcher) ThumbnailDir(username string) string {
	return filepath.Join(d.UserDir(username), d.opts.ThumbnailsName)
}

// Pending returns the number of triggered jobs waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Start launches the worker pool consuming triggered jobs. Cancelling ctx aborts running jobs.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info("sync workers started", "workers", d.opts.Workers, "queue", d.opts.QueueSize)
}

// TriggerSync queues a job for user against sourceURL and returns without waiting for it.
//
// An empty sourceURL is logged and ignored (nil error). A user with a job already queued or
// running yields [shared.ErrJobInFlight]; a full or closed queue yields [shared.ErrQueueFull]
// or [shared.ErrQueueClosed].
func (d *Dispatcher) TriggerSync(user *models.User, sourceURL string) error {
	job := NewJob(user, sourceURL)
	if job.SourceURL == "" {
		d.finish(JobResult{Job: job, Outcome: SkippedNoSource})
		return nil
	}

	if err := d.enqueue(job); err != nil {
		if errors.Is(err, shared.ErrJobInFlight) {
			d.finish(JobResult{Job: job, Outcome: Busy, Err: err})
		}
		return err
	}

	d.logf(job, "Sync queued for %s", job.SourceURL)
	d.sendProgress(jobQueuedUpdate(job))
	return nil
}

func (d *Dispatcher) enqueue(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return shared.ErrQueueClosed
	}
	if _, busy := d.inflight[job.UserID]; busy {
		return fmt.Errorf("%w: %s", shared.ErrJobInFlight, job.Username)
	}

	select {
	case d.queue <- job:
		d.inflight[job.UserID] = struct{}{}
		d.opts.Metrics.setInflight(len(d.inflight))
		return nil
	default:
		return fmt.Errorf("%w: %d pending", shared.ErrQueueFull, len(d.queue))
	}
}

// RunJob runs job synchronously in the caller's goroutine.
//
// It reports [Busy] without running when the same user already has a job in flight.
func (d *Dispatcher) RunJob(ctx context.Context, job Job) JobResult {
	if job.SourceURL == "" {
		return d.finish(JobResult{Job: job, Outcome: SkippedNoSource})
	}
	if !d.reserve(job.UserID) {
		return d.finish(JobResult{
			Job:     job,
			Outcome: Busy,
			Err:     fmt.Errorf("%w: %s", shared.ErrJobInFlight, job.Username),
		})
	}
	defer d.release(job.UserID)

	return d.finish(d.execute(ctx, job))
}

// Shutdown stops accepting jobs and waits for queued and running ones to finish.
//
// If ctx ends first, running jobs are cancelled and Shutdown returns [shared.ErrTimeout]
// once the workers have exited.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for job := range d.queue {
			d.release(job.UserID)
			d.finish(JobResult{Job: job, Outcome: Canceled, Err: shared.ErrQueueClosed})
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("sync workers stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("%w: sync workers did not drain: %v", shared.ErrTimeout, ctx.Err())
	}
}

// worker consumes the job queue until it is closed.
func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for job := range d.queue {
		if err := d.limiter.Wait(ctx); err != nil {
			d.release(job.UserID)
			d.finish(JobResult{Job: job, Outcome: Canceled, Err: err})
			continue
		}

		res := d.execute(ctx, job)
		d.release(job.UserID)
		d.finish(res)
	}
}

func (d *Dispatcher) reserve(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, busy := d.inflight[userID]; busy {
		return false
	}
	d.inflight[userID] = struct{}{}
	d.opts.Metrics.setInflight(len(d.inflight))
	return true
}

func (d *Dispatcher) release(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.inflight, userID)
	d.opts.Metrics.setInflight(len(d.inflight))
}

// execute runs the three job steps. A panic anywhere below is converted into [Panicked].
func (d *Dispatcher) execute(ctx context.Context, job Job) (res JobResult) {
	job.StartedAt = time.Now()
	res = JobResult{Job: job}

	defer func() {
		res.Duration = time.Since(job.StartedAt)
		if r := recover(); r != nil {
			res.Outcome = Panicked
			res.Err = fmt.Errorf("job panicked: %v", r)
			d.logger.Error("recovered job panic", "user", job.Username, "job", job.ID, "panic", r)
		}
	}()

	dir := d.UserDir(job.Username)
	d.logf(job, "Starting sync for %s", job.Username)
	d.logf(job, "URL: %s", job.SourceURL)

	d.sendProgress(fetchingUpdate(job))
	fetched, err := d.fetch.Fetch(ctx, dir, job.SourceURL, func(ev fetcher.Event) {
		d.onFetchEvent(job, ev)
	})
	res.Fetch = fetched
	if fetched != nil {
		d.logf(job, "%s", fetched.Summary())
	}
	if err != nil {
		res.Outcome, res.Err = fetchOutcome(ctx, err), err
		d.logf(job, "Fetch failed (%s): %v", res.Outcome, err)
		return res
	}

	d.sendProgress(scanningUpdate(job, dir))
	scanned, err := d.scan.Scan(ctx, scanner.Request{
		UserID:       job.UserID,
		Dir:          dir,
		ThumbnailDir: d.ThumbnailDir(job.Username),
	}, func(format string, args ...any) {
		d.logf(job, format, args...)
	})
	res.Scan = scanned
	if err != nil {
		res.Outcome, res.Err = ScanFailed, err
		if ctx.Err() != nil {
			res.Outcome = Canceled
		}
		d.logf(job, "Scan failed: %v", err)
		return res
	}
	d.logf(job, "%s", scanned.Summary())
	d.sendProgress(scannedUpdate(job, scanned))

	d.sendProgress(updatingStateUpdate(job))
	at := d.opts.Now().UTC()
	advanced, err := d.users.UpdateLastSync(ctx, job.UserID, at)
	if err != nil {
		res.Outcome, res.Err = StateFailed, err
		d.logf(job, "Failed to record last sync: %v", err)
		return res
	}

	res.Outcome = Succeeded
	if advanced {
		res.LastSync = &at
	} else {
		d.logf(job, "Last sync unchanged: %s is not after the recorded time", at.Format(time.RFC3339))
	}
	d.logf(job, "Download and scan completed successfully")
	return res
}

// onFetchEvent logs classified lines and stderr output; unclassified stdout noise is dropped.
func (d *Dispatcher) onFetchEvent(job Job, ev fetcher.Event) {
	switch {
	case ev.Kind == fetcher.PlaylistStarted:
		d.logf(job, "Playlist has %d items", ev.Count)
	case ev.Kind == fetcher.ItemDownloaded:
		d.logf(job, "Downloaded: %s", filepath.Base(ev.Path))
	case ev.Kind == fetcher.ItemSkipped:
		d.logf(job, "Already downloaded: %s", filepath.Base(ev.Path))
	case ev.Kind == fetcher.PlaylistFinished:
		d.logf(job, "Finished playlist: %s", ev.Name)
	case ev.Stream == fetcher.Stderr:
		d.logf(job, "%s", ev.Line)
	default:
		return
	}
	d.sendProgress(fetchEventUpdate(job, ev))
}

func fetchOutcome(ctx context.Context, err error) Outcome {
	switch {
	case errors.Is(err, shared.ErrFetchTimeout):
		return FetchTimeout
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return Canceled
	default:
		return FetchFailed
	}
}

// finish logs, measures and reports a completed job.
func (d *Dispatcher) finish(res JobResult) JobResult {
	switch res.Outcome {
	case SkippedNoSource:
		d.logf(res.Job, "Source URL not set, skipping")
	case Busy:
		d.logf(res.Job, "Sync already in progress, skipping")
	}

	d.opts.Metrics.recordJob(res)

	l := d.logger.With("user", res.Job.Username, "job", res.Job.ID, "outcome", res.Outcome, "duration", res.Duration.Round(time.Millisecond))
	if res.Outcome.Failed() {
		l.Error("sync job failed", "error", res.Err)
	} else {
		l.Info("sync job finished")
	}

	d.sendProgress(jobFinishedUpdate(res))
	return res
}

// logf writes one line to the user's durable log and mirrors it to the process logger.
func (d *Dispatcher) logf(job Job, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.logger.Debug(msg, "user", job.Username, "job", job.ID)

	if d.sink == nil || job.Username == "" {
		return
	}
	if err := d.sink.Append(job.Username, msg); err != nil {
		d.logger.Warn("failed to write job log", "user", job.Username, "error", err)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (d *Dispatcher) sendProgress(update ProgressUpdate) {
	if d.opts.Progress == nil {
		return
	}
	select {
	case d.opts.Progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}
