// Package tasks runs library sync jobs with real-time progress reporting.
//
// # Jobs
//
// A [Job] syncs one user's library in three strictly ordered steps:
//
//  1. Fetch: the external tool downloads the user's source URL into <library root>/<username>
//  2. Scan: audio files in that directory are recorded as tracks (only if the fetch succeeded)
//  3. State: the user's last sync time is advanced (only if both steps succeeded)
//
// A failed step ends the job with an [Outcome]; later steps are skipped and the job slot is
// released. A panic inside a job is recovered into [Panicked] and never reaches other jobs.
//
// # Dispatch
//
// [Dispatcher.TriggerSync] enqueues a job and returns immediately; a bounded worker pool
// started by [Dispatcher.Start] consumes the queue. [Dispatcher.RunScheduledSync] runs one job
// per eligible user through its own bounded pool and waits for all of them.
// At most one job per user is queued or running; extra requests end as [Busy].
//
// Store access around the fetch is a set of short, independent calls. No connection or
// transaction is held while the external process runs.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// Every human-readable job line goes to the per-user log sink and is mirrored to the
// process logger. [ProgressUpdate] values are sent with select/default so a slow consumer
// never stalls a job.
//
// # Scheduling
//
// [Scheduler] invokes the batch entry point on a cron expression, skipping a tick while the
// previous batch is still running.
package tasks
