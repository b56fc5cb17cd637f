package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BatchResult summarises one scheduled run across all eligible users.
type BatchResult struct {
	Total     int         // Eligible users at batch start
	Succeeded int         // Jobs that advanced last sync
	Failed    int         // Jobs that ended in a failing outcome
	Skipped   int         // Jobs skipped as busy or without a source
	Results   []JobResult // One entry per user, in completion order
	Duration  time.Duration
}

// Outcomes counts results by outcome.
func (b *BatchResult) Outcomes() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range b.Results {
		counts[r.Outcome]++
	}
	return counts
}

// RunScheduledSync runs one job per user with a source URL and waits for all of them.
//
// Jobs are isolated: a failure, timeout or panic for one user never stops the others.
// The only error returned is a failure to list the eligible users.
func (d *Dispatcher) RunScheduledSync(ctx context.Context) (*BatchResult, error) {
	start := time.Now()

	users, err := d.users.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with a source URL: %w", err)
	}

	total := len(users)
	result := &BatchResult{Total: total, Results: make([]JobResult, 0, total)}

	d.logger.Info(fmt.Sprintf("batch started for %d users", total))
	d.opts.Metrics.recordBatch()
	d.sendProgress(batchStartedUpdate(total))

	workers := min(d.opts.Workers, max(total, 1))

	jobs := make(chan Job, total)
	results := make(chan JobResult, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go d.batchWorker(ctx, &wg, jobs, results)
	}

	for _, u := range users {
		jobs <- NewJob(u, u.SourceURL())
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Outcome == Succeeded:
			result.Succeeded++
		case res.Outcome.Failed():
			result.Failed++
		default:
			result.Skipped++
		}

		d.sendProgress(batchJobFinishedUpdate(completed, total, res))
	}

	result.Duration = time.Since(start)
	d.logger.Info("batch finished",
		"users", total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration.Round(time.Second),
	)
	d.sendProgress(batchFinishedUpdate(result))
	return result, nil
}

// batchWorker runs jobs from the batch channel until it is drained.
//
// Every job produces exactly one result, including jobs cancelled before they started.
func (d *Dispatcher) batchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan Job, results chan<- JobResult) {
	defer wg.Done()

	for job := range jobs {
		if err := d.limiter.Wait(ctx); err != nil {
			results <- d.finish(JobResult{Job: job, Outcome: Canceled, Err: err})
			continue
		}
		results <- d.RunJob(ctx, job)
	}
}
