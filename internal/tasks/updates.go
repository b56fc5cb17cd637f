package tasks

import (
	"fmt"

	"github.com/desertthunder/soundsync/internal/fetcher"
	"github.com/desertthunder/soundsync/internal/scanner"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Job     Job    // Job the update belongs to; zero for batch-level updates
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	BatchStarted Phase = iota
	JobQueued
	Fetching
	FetchEvent
	Scanning
	UpdatingState
	JobFinished
	BatchFinished
)

func (p Phase) String() string {
	switch p {
	case BatchStarted:
		return "batch_started"
	case JobQueued:
		return "job_queued"
	case Fetching:
		return "fetching"
	case FetchEvent:
		return "fetch_event"
	case Scanning:
		return "scanning"
	case UpdatingState:
		return "updating_state"
	case JobFinished:
		return "job_finished"
	case BatchFinished:
		return "batch_finished"
	default:
		return ""
	}
}

func batchStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchStarted,
		Total:   total,
		Message: fmt.Sprintf("Batch started for %d users", total),
	}
}

func jobQueuedUpdate(job Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobQueued,
		Job:     job,
		Message: fmt.Sprintf("Queued sync for %s", job.Username),
	}
}

func fetchingUpdate(job Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetching,
		Step:    1,
		Total:   3,
		Job:     job,
		Message: fmt.Sprintf("Fetching %s", job.SourceURL),
	}
}

func fetchEventUpdate(job Job, ev fetcher.Event) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEvent,
		Step:    1,
		Total:   3,
		Job:     job,
		Message: ev.Line,
		Data:    ev,
	}
}

func scanningUpdate(job Job, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scanning,
		Step:    2,
		Total:   3,
		Job:     job,
		Message: fmt.Sprintf("Scanning %s", dir),
	}
}

func scannedUpdate(job Job, res *scanner.Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scanning,
		Step:    2,
		Total:   3,
		Job:     job,
		Message: res.Summary(),
		Data:    res,
	}
}

func updatingStateUpdate(job Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UpdatingState,
		Step:    3,
		Total:   3,
		Job:     job,
		Message: "Recording last sync time",
	}
}

func jobFinishedUpdate(res JobResult) ProgressUpdate {
	msg := fmt.Sprintf("✓ %s: %s", res.Job.Username, res.Outcome)
	if res.Err != nil {
		msg = fmt.Sprintf("✗ %s: %s: %v", res.Job.Username, res.Outcome, res.Err)
	}
	return ProgressUpdate{
		Phase:   JobFinished,
		Job:     res.Job,
		Message: msg,
		Data:    res,
	}
}

func batchJobFinishedUpdate(step, total int, res JobResult) ProgressUpdate {
	u := jobFinishedUpdate(res)
	u.Step = step
	u.Total = total
	u.Message = fmt.Sprintf("[%d/%d] %s", step, total, u.Message)
	return u
}

func batchFinishedUpdate(res *BatchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchFinished,
		Step:    res.Total,
		Total:   res.Total,
		Message: fmt.Sprintf("Batch finished: %d succeeded, %d failed", res.Succeeded, res.Failed),
		Data:    res,
	}
}
