package ui

import (
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/tasks"
)

type usersFetchedMsg struct {
	users []*models.User
	err   error
}

type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg carries the results of a single-user job or a batch.
type syncCompleteMsg struct {
	results []tasks.JobResult
	batch   *tasks.BatchResult
	err     error
}
