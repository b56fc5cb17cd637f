package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/soundsync/internal/fetcher"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/scanner"
	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/desertthunder/soundsync/internal/tasks"
	tu "github.com/desertthunder/soundsync/internal/testing"
)

func sampleTracks() []*models.Track {
	a := models.NewTrack("user-1", "/lib/alice/Band - Song A.mp3", models.Tags{
		Title: "Song A", Artist: "Band", Album: "First", Year: "2020", Genre: "Rock",
	}.Resolve("Band - Song A.mp3"))
	a.ID = "track1"
	a.Thumbnail = "/lib/alice/thumbnails/Band_-_Song_A.jpg"

	b := models.NewTrack("user-1", "/lib/alice/b.mp3", models.Tags{}.Resolve("b.mp3"))
	b.ID = "track2"

	return []*models.Track{a, b}
}

func TestExporters(t *testing.T) {
	tracks := sampleTracks()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(tracks)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), data)
		}
		if lines[0] != "ID,Title,Artist,Album,Year,Genre,File,Thumbnail" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != "track1,Song A,Band,First,2020,Rock,/lib/alice/Band - Song A.mp3,/lib/alice/thumbnails/Band_-_Song_A.jpg" {
			t.Errorf("unexpected first row %q", lines[1])
		}
		if lines[2] != "track2,b.mp3,Unknown,Unknown,,,/lib/alice/b.mp3," {
			t.Errorf("unexpected second row %q", lines[2])
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(tracks)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []models.Track
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].Title != "Song A" || decoded[1].Artist != models.UnknownTag {
			t.Errorf("unexpected decoded tracks %+v", decoded)
		}
		if !strings.Contains(string(data), `"filepath": "/lib/alice/b.mp3"`) {
			t.Errorf("expected filepath key in output:\n%s", data)
		}
	})

	t.Run("ExportToJSON empty", func(t *testing.T) {
		data, err := ExportToJSON(nil)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %q", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("alice", tracks)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# alice\n",
			"**Tracks**: 2",
			"## Tracks",
			"1. Band - Song A (First) [2020]\n",
			"2. Unknown - b.mp3\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("alice", tracks)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		want := "Library: alice\nTracks: 2\n\n1. Band - Song A (First)\n2. Unknown - b.mp3\n"
		if string(data) != want {
			t.Errorf("unexpected text export:\n%q\nwant:\n%q", data, want)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"txt", FormatText, false},
		{"text", FormatText, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		written, err := WriteExport(FormatCSV, "alice", sampleTracks(), path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		if !strings.HasPrefix(tu.MustReadFile(t, path), "ID,Title") {
			t.Error("expected CSV content")
		}
	})

	t.Run("default path", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		defer tu.MustChdir(t, wd)
		dir := t.TempDir()
		tu.MustChdir(t, dir)

		written, err := WriteExport(FormatJSON, "Ali Ce", sampleTracks(), "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != "Ali_Ce_tracks.json" {
			t.Errorf("unexpected default path %s", written)
		}
		tu.AssertFileExists(t, filepath.Join(dir, written))
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")

		if _, err := WriteExport(FormatText, "alice", nil, path); err == nil {
			t.Error("expected write error")
		}
		if _, err := os.Stat(path); err == nil {
			t.Error("file should not exist")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := WriteExport(Format("xml"), "alice", nil, filepath.Join(t.TempDir(), "x")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestStyles(t *testing.T) {
	job := tasks.Job{Username: "alice"}

	t.Run("JobLine", func(t *testing.T) {
		tests := []struct {
			name string
			res  tasks.JobResult
			want []string
		}{
			{
				name: "succeeded",
				res: tasks.JobResult{
					Job:      job,
					Outcome:  tasks.Succeeded,
					Fetch:    &fetcher.Result{Downloaded: 3, Skipped: 1},
					Scan:     &scanner.Result{Inserted: 3},
					Duration: 2 * time.Second,
				},
				want: []string{"✓ alice: succeeded", "3 downloaded, 1 skipped", "3 new tracks", "in 2s"},
			},
			{
				name: "fetch timeout",
				res: tasks.JobResult{
					Job:     job,
					Outcome: tasks.FetchTimeout,
					Err:     shared.ErrFetchTimeout,
				},
				want: []string{"✗ alice: fetch_timeout", "fetch timed out"},
			},
			{
				name: "unreadable files",
				res: tasks.JobResult{
					Job:     job,
					Outcome: tasks.Succeeded,
					Scan:    &scanner.Result{Inserted: 2, Failed: 1},
				},
				want: []string{"2 new tracks, 1 unreadable"},
			},
			{
				name: "skipped",
				res:  tasks.JobResult{Job: job, Outcome: tasks.SkippedNoSource},
				want: []string{"- alice: skipped_no_source"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				line := JobLine(tt.res)
				for _, want := range tt.want {
					if !strings.Contains(line, want) {
						t.Errorf("expected %q in %q", want, line)
					}
				}
			})
		}
	})

	t.Run("BatchSummary", func(t *testing.T) {
		res := &tasks.BatchResult{
			Total:     2,
			Succeeded: 1,
			Failed:    1,
			Results: []tasks.JobResult{
				{Job: tasks.Job{Username: "alice"}, Outcome: tasks.Succeeded},
				{Job: tasks.Job{Username: "bob"}, Outcome: tasks.FetchFailed},
			},
		}

		out := BatchSummary(res)
		for _, want := range []string{"Synced 2 users: 1 succeeded, 1 failed, 0 skipped", "alice: succeeded", "bob: fetch_failed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("UserLine", func(t *testing.T) {
		u := models.NewUser(4, "alice", "hash")
		if line := UserLine(u); !strings.Contains(line, "alice") || !strings.Contains(line, "no source URL") || !strings.Contains(line, "never") {
			t.Errorf("unexpected line %q", line)
		}

		at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		u.SetSourceURL("https://soundcloud.com/alice/likes")
		u.SetLastSync(&at)
		line := UserLine(u)
		if !strings.Contains(line, "https://soundcloud.com/alice/likes") || strings.Contains(line, "never") {
			t.Errorf("unexpected line %q", line)
		}
	})
}
