package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/soundsync/internal/models"
)

var _ list.Item = userItem{}

// userItem wraps [models.User] to implement [list.Item].
type userItem struct {
	user *models.User
}

func (i userItem) FilterValue() string { return i.user.Username() }
func (i userItem) Title() string       { return i.user.Username() }
func (i userItem) Description() string {
	source := i.user.SourceURL()
	if source == "" {
		source = "no source URL"
	}

	last := "never synced"
	if t := i.user.LastSync(); t != nil {
		last = "synced " + t.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("%s • %s", source, last)
}
