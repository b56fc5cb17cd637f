package fetcher

import (
	"regexp"
	"strconv"
	"strings"
)

// EventKind tags the variant held by an [Event].
type EventKind int

const (
	Unclassified EventKind = iota
	PlaylistStarted
	ItemDownloaded
	ItemSkipped
	PlaylistFinished
)

func (k EventKind) String() string {
	switch k {
	case PlaylistStarted:
		return "playlist_started"
	case ItemDownloaded:
		return "item_downloaded"
	case ItemSkipped:
		return "item_skipped"
	case PlaylistFinished:
		return "playlist_finished"
	default:
		return "unclassified"
	}
}

// Stream identifies which output of the process produced a line.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Event is one classified output line.
//
// Count is set for [PlaylistStarted], Path for [ItemDownloaded] and [ItemSkipped],
// Name for [PlaylistFinished].
type Event struct {
	Kind   EventKind
	Stream Stream
	Line   string
	Count  int
	Path   string
	Name   string
}

var (
	playlistStartedRe  = regexp.MustCompile(`Downloading (\d+) items`)
	itemSkippedRe      = regexp.MustCompile(`^\[download\] (.+) has already been downloaded`)
	itemDownloadedRe   = regexp.MustCompile(`^\[ExtractAudio\] Destination: (.+)$`)
	playlistFinishedRe = regexp.MustCompile(`^\[download\] Finished downloading playlist: (.+)$`)
)

// Classify maps one raw output line to an [Event]. It never fails; lines that match no
// pattern are [Unclassified].
func Classify(line string) Event {
	line = strings.TrimSpace(line)
	ev := Event{Kind: Unclassified, Line: line}

	if m := itemDownloadedRe.FindStringSubmatch(line); m != nil {
		ev.Kind, ev.Path = ItemDownloaded, m[1]
		return ev
	}
	if m := itemSkippedRe.FindStringSubmatch(line); m != nil {
		ev.Kind, ev.Path = ItemSkipped, m[1]
		return ev
	}
	if m := playlistFinishedRe.FindStringSubmatch(line); m != nil {
		ev.Kind, ev.Name = PlaylistFinished, m[1]
		return ev
	}
	if m := playlistStartedRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ev.Kind, ev.Count = PlaylistStarted, n
		}
	}
	return ev
}
