package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the batch once a day at midnight.
const DefaultSchedule = "0 0 * * *"

// BatchRunner is the batch entry point driven by a [Scheduler].
type BatchRunner interface {
	RunScheduledSync(ctx context.Context) (*BatchResult, error)
}

// Scheduler invokes a [BatchRunner] on a cron schedule.
//
// A tick that fires while the previous batch is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner BatchRunner
	logger *log.Logger
	spec   string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec (standard five-field cron syntax) in the named timezone.
// An empty spec uses [DefaultSchedule]; an empty timezone uses the local zone.
func NewScheduler(runner BatchRunner, spec, timezone string, logger *log.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}

	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		loc = l
	}

	stdLogger := cron.PrintfLogger(logger.StandardLog())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(stdLogger), cron.SkipIfStillRunning(stdLogger)),
	)

	s := &Scheduler{cron: c, runner: runner, logger: logger, spec: spec}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing ticks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sync schedule started", "schedule", s.spec, "next", s.Next())
}

// Next returns the next time the batch will run; zero before [Scheduler.Start].
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop prevents further ticks and waits for a running batch until ctx ends, at which point
// the batch is cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()

	select {
	case <-done.Done():
	case <-ctx.Done():
		s.cancel()
		<-done.Done()
	}
	s.cancel()
}

func (s *Scheduler) tick() {
	s.logger.Info("scheduled sync starting")

	res, err := s.runner.RunScheduledSync(s.ctx)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}
	s.logger.Info("scheduled sync done", "users", res.Total, "succeeded", res.Succeeded, "failed", res.Failed)
}
