package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Title renders s as a section heading.
func Title(s string) string { return styles.title.Render(s) }

// Hint renders s as secondary help text.
func Hint(s string) string { return styles.help.Render(s) }

// OK renders s as a success message.
func OK(s string) string { return styles.ok.Render(s) }

// Err renders s as an error message.
func Err(s string) string { return styles.err.Render(s) }

// Warn renders s as a warning.
func Warn(s string) string { return styles.warn.Render(s) }

// JobLine renders one job result, e.g. "✓ alice: succeeded (3 downloaded, 1 skipped; 3 new tracks) in 2s".
func JobLine(res tasks.JobResult) string {
	mark, style := "✓", styles.ok
	switch {
	case res.Outcome.Failed():
		mark, style = "✗", styles.err
	case res.Outcome != tasks.Succeeded:
		mark, style = "-", styles.warn
	}

	var details []string
	if res.Fetch != nil {
		details = append(details, fmt.Sprintf("%d downloaded, %d skipped", res.Fetch.Downloaded, res.Fetch.Skipped))
	}
	if res.Scan != nil {
		scan := fmt.Sprintf("%d new tracks", res.Scan.Inserted)
		if res.Scan.Failed > 0 {
			scan += fmt.Sprintf(", %d unreadable", res.Scan.Failed)
		}
		details = append(details, scan)
	}
	if res.Err != nil {
		details = append(details, res.Err.Error())
	}

	line := fmt.Sprintf("%s %s: %s", mark, res.Job.Username, res.Outcome)
	if len(details) > 0 {
		line += " (" + strings.Join(details, "; ") + ")"
	}
	if res.Duration > 0 {
		line += " in " + res.Duration.Round(time.Millisecond).String()
	}
	return style.Render(line)
}

// BatchSummary renders a batch heading followed by one [JobLine] per user.
func BatchSummary(res *tasks.BatchResult) string {
	var b strings.Builder

	b.WriteString(Title(fmt.Sprintf("Synced %d users: %d succeeded, %d failed, %d skipped",
		res.Total, res.Succeeded, res.Failed, res.Skipped)))
	b.WriteString("\n")
	for _, r := range res.Results {
		b.WriteString(JobLine(r))
		b.WriteString("\n")
	}
	return b.String()
}

// UserLine renders a user with its source and last sync time.
func UserLine(u *models.User) string {
	source := u.SourceURL()
	if source == "" {
		source = Hint("no source URL")
	}

	last := "never"
	if t := u.LastSync(); t != nil {
		last = t.Local().Format(time.DateTime)
	}

	return fmt.Sprintf("%3d  %-20s  %s  %s", u.Sequence(), u.Username(), source, Hint("last sync: "+last))
}
