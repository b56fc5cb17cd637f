package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/soundsync/internal/formatter"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/scanner"
	"github.com/desertthunder/soundsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun runs one user's job in the foreground.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	user, err := r.users.GetByUsername(ctx, cmd.String("username"))
	if err != nil {
		return err
	}
	return r.syncUser(ctx, user)
}

// syncUser runs a job with the user's stored source URL and prints its outcome.
//
// A failing outcome is returned as an error; a skipped job is not.
func (r *Runner) syncUser(ctx context.Context, user *models.User) error {
	d, err := r.pipeline()
	if err != nil {
		return err
	}

	res := d.RunJob(ctx, tasks.NewJob(user, user.SourceURL()))
	r.writePlain("%s\n", formatter.JobLine(res))

	if !res.Outcome.Failed() {
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("sync for %s ended with %s: %w", user.Username(), res.Outcome, res.Err)
	}
	return fmt.Errorf("sync for %s ended with %s", user.Username(), res.Outcome)
}

type batchView struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Outcomes  map[string]int `json:"outcomes"`
	Duration  string         `json:"duration"`
}

// SyncAll runs the scheduled batch once in the foreground.
//
// Per-user failures are reported but do not fail the command.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	d, err := r.pipeline()
	if err != nil {
		return err
	}

	res, err := d.RunScheduledSync(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		outcomes := make(map[string]int)
		for o, n := range res.Outcomes() {
			outcomes[o.String()] = n
		}
		return r.writeJSON(batchView{
			Total:     res.Total,
			Succeeded: res.Succeeded,
			Failed:    res.Failed,
			Skipped:   res.Skipped,
			Outcomes:  outcomes,
			Duration:  res.Duration.String(),
		}, true)
	}

	r.writePlain("%s", formatter.BatchSummary(res))
	return nil
}

// Scan records the files already in a user's directory without fetching.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	d, err := r.pipeline()
	if err != nil {
		return err
	}

	user, err := r.users.GetByUsername(ctx, cmd.String("username"))
	if err != nil {
		return err
	}

	s := scanner.New(r.tracks, r.config.Library.Extension, r.logger)
	req := scanner.Request{
		UserID:       user.ID(),
		Dir:          d.UserDir(user.Username()),
		ThumbnailDir: d.ThumbnailDir(user.Username()),
	}

	logf := func(format string, args ...any) {
		r.writePlain(format+"\n", args...)
	}

	res, err := s.Scan(ctx, req, logf)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", res.Summary())
	return nil
}
