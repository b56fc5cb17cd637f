package fetcher

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/soundsync/internal/shared"
	tu "github.com/desertthunder/soundsync/internal/testing"
)

func TestBuildArgs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		args := BuildArgs(Options{}, "/lib/alice", "https://soundcloud.com/alice/likes")

		want := []string{
			"-x",
			"-f", "bestaudio",
			"--audio-format", "mp3",
			"--audio-quality", "128K",
			"--embed-thumbnail",
			"--embed-metadata",
			"--continue",
			"--newline",
			"-o", "/lib/alice/%(artist,uploader)s - %(title)s.%(ext)s",
			"--", "https://soundcloud.com/alice/likes",
		}
		if !slices.Equal(args, want) {
			t.Errorf("BuildArgs() =\n%v\nwant\n%v", args, want)
		}
	})

	t.Run("extra args precede url", func(t *testing.T) {
		opts := Options{AudioFormat: "opus", AudioQuality: "96K", ExtraArgs: []string{"--sleep-interval", "2"}}
		args := BuildArgs(opts, "/lib/bob", "-weird")

		if args[len(args)-2] != "--" || args[len(args)-1] != "-weird" {
			t.Errorf("url must follow --, got %v", args[len(args)-2:])
		}
		if !slices.Contains(args, "opus") || !slices.Contains(args, "96K") {
			t.Errorf("expected configured format and quality in %v", args)
		}
		if i := slices.Index(args, "--sleep-interval"); i < 0 || args[i+1] != "2" {
			t.Errorf("expected extra args in %v", args)
		}
	})

	t.Run("from config", func(t *testing.T) {
		opts := OptionsFromConfig(shared.FetcherConfig{Binary: "/opt/yt-dlp", Timeout: "90m"})

		if opts.Binary != "/opt/yt-dlp" {
			t.Errorf("expected configured binary, got %s", opts.Binary)
		}
		if opts.Timeout != 90*time.Minute {
			t.Errorf("expected 90m timeout, got %s", opts.Timeout)
		}
		if opts.AudioFormat != DefaultAudioFormat || opts.OutputTemplate != DefaultOutputTemplate {
			t.Errorf("expected defaults for unset fields, got %+v", opts)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "playlist size",
			line: "[soundcloud:user:likes] alice: Downloading 42 items",
			want: Event{Kind: PlaylistStarted, Count: 42},
		},
		{
			name: "playlist size with totals",
			line: "[youtube:tab] Playlist mix: Downloading 7 items of 7",
			want: Event{Kind: PlaylistStarted, Count: 7},
		},
		{
			name: "downloaded",
			line: "[ExtractAudio] Destination: /lib/alice/Band - Song A.mp3",
			want: Event{Kind: ItemDownloaded, Path: "/lib/alice/Band - Song A.mp3"},
		},
		{
			name: "skipped",
			line: "[download] /lib/alice/Band - Song B.mp3 has already been downloaded",
			want: Event{Kind: ItemSkipped, Path: "/lib/alice/Band - Song B.mp3"},
		},
		{
			name: "finished",
			line: "[download] Finished downloading playlist: alice likes",
			want: Event{Kind: PlaylistFinished, Name: "alice likes"},
		},
		{
			name: "pre-conversion destination is noise",
			line: "[download] Destination: /lib/alice/Band - Song A.webm",
			want: Event{Kind: Unclassified},
		},
		{
			name: "progress is noise",
			line: "[download]  45.3% of 3.21MiB at 1.02MiB/s ETA 00:01",
			want: Event{Kind: Unclassified},
		},
		{
			name: "item counter is noise",
			line: "[download] Downloading item 3 of 42",
			want: Event{Kind: Unclassified},
		},
		{
			name: "surrounding whitespace",
			line: "  [ExtractAudio] Destination: /lib/a.mp3  ",
			want: Event{Kind: ItemDownloaded, Path: "/lib/a.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)

			if got.Kind != tt.want.Kind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.want.Kind)
			}
			if got.Count != tt.want.Count || got.Path != tt.want.Path || got.Name != tt.want.Name {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
			if got.Line != strings.TrimSpace(tt.line) {
				t.Errorf("Line = %q, want trimmed input", got.Line)
			}
		})
	}
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "newlines", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "carriage returns", input: "10%\r50%\r100%\n", want: []string{"10%", "50%", "100%"}},
		{name: "crlf", input: "a\r\nb", want: []string{"a", "", "b"}},
		{name: "no trailing newline", input: "last", want: []string{"last"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			data := []byte(tt.input)
			for len(data) > 0 {
				advance, token, err := scanLines(data, true)
				if err != nil {
					t.Fatalf("scanLines() error = %v", err)
				}
				got = append(got, string(token))
				data = data[advance:]
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTailBuffer(t *testing.T) {
	tail := &tailBuffer{max: 16}
	tail.add("first line that is long")
	tail.add("last")

	got := tail.String()
	if len(got) > 16 {
		t.Errorf("tail exceeds limit: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "last") {
		t.Errorf("tail should keep the newest output, got %q", got)
	}
}

const playlistScript = `
echo "[soundcloud:user:likes] alice: Downloading 3 items"
echo "[download] $DIR/Band - Old.mp3 has already been downloaded"
printf '[download]  10.0%%\r[download] 100.0%%\n'
echo "[ExtractAudio] Destination: $DIR/Band - New A.mp3"
echo "WARNING: thumbnail conversion skipped" >&2
echo "[ExtractAudio] Destination: $DIR/Band - New B.mp3"
echo "[download] Finished downloading playlist: alice likes"
`

func TestExecutorFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("streams and classifies output", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", "DIR=$(pwd)\n"+playlistScript)
		dir := filepath.Join(t.TempDir(), "alice")
		exec := NewExecutor(Options{Binary: bin, Timeout: 10 * time.Second}, nil)

		var events []Event
		result, err := exec.Fetch(ctx, dir, "https://soundcloud.com/alice/likes", func(ev Event) {
			events = append(events, ev)
		})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		tu.AssertDirExists(t, dir)

		if result.PlaylistSize != 3 {
			t.Errorf("PlaylistSize = %d, want 3", result.PlaylistSize)
		}
		if result.Downloaded != 2 {
			t.Errorf("Downloaded = %d, want 2", result.Downloaded)
		}
		if result.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", result.Skipped)
		}
		if result.PlaylistName != "alice likes" {
			t.Errorf("PlaylistName = %q", result.PlaylistName)
		}
		if result.Lines != 8 || len(events) != 8 {
			t.Errorf("expected 8 lines, got result=%d events=%d", result.Lines, len(events))
		}

		var stderr int
		for _, ev := range events {
			if ev.Stream == Stderr {
				stderr++
			}
		}
		if stderr != 1 {
			t.Errorf("expected 1 stderr line, got %d", stderr)
		}
		if !strings.Contains(result.Summary(), "2 downloaded, 1 skipped") {
			t.Errorf("unexpected summary %q", result.Summary())
		}
	})

	t.Run("passes policy arguments", func(t *testing.T) {
		tmp := t.TempDir()
		argsFile := filepath.Join(tmp, "args")
		bin := tu.WriteScript(t, tmp, "fetch", `printf '%s\n' "$@" > "`+argsFile+`"`)
		dir := filepath.Join(tmp, "lib", "alice")

		if _, err := NewExecutor(Options{Binary: bin}, nil).Fetch(ctx, dir, "https://soundcloud.com/alice", nil); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		got := strings.Split(strings.TrimSpace(tu.MustReadFile(t, argsFile)), "\n")
		if want := BuildArgs(Options{}, dir, "https://soundcloud.com/alice"); !slices.Equal(got, want) {
			t.Errorf("process args =\n%v\nwant\n%v", got, want)
		}
	})

	t.Run("zero new items is success", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", "exit 0")

		result, err := NewExecutor(Options{Binary: bin}, nil).Fetch(ctx, t.TempDir(), "https://x", nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if result.Downloaded != 0 || result.Lines != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", `
echo "[soundcloud] resolving"
echo "ERROR: Unable to download JSON metadata: HTTP Error 404" >&2
exit 2`)

		result, err := NewExecutor(Options{Binary: bin}, nil).Fetch(ctx, t.TempDir(), "https://x", nil)
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}

		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected *ExitError, got %T", err)
		}
		if exitErr.Code != 2 {
			t.Errorf("Code = %d, want 2", exitErr.Code)
		}
		if !strings.Contains(exitErr.Stderr, "HTTP Error 404") {
			t.Errorf("stderr excerpt missing diagnostic: %q", exitErr.Stderr)
		}
		if strings.Contains(exitErr.Stderr, "resolving") {
			t.Errorf("stdout leaked into stderr excerpt: %q", exitErr.Stderr)
		}
		if result == nil || result.Lines != 2 {
			t.Errorf("expected partial result with 2 lines, got %+v", result)
		}
	})

	t.Run("stderr excerpt is truncated", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", `
i=0
while [ $i -lt 200 ]; do
  echo "ERROR: line $i of a very noisy failure output" >&2
  i=$((i+1))
done
exit 1`)

		_, err := NewExecutor(Options{Binary: bin}, nil).Fetch(ctx, t.TempDir(), "https://x", nil)

		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected *ExitError, got %v", err)
		}
		if len(exitErr.Stderr) > stderrTailSize {
			t.Errorf("stderr excerpt is %d bytes, limit %d", len(exitErr.Stderr), stderrTailSize)
		}
		if !strings.HasSuffix(exitErr.Stderr, "line 199 of a very noisy failure output") {
			t.Errorf("excerpt should end with the last line, got ...%q", exitErr.Stderr[len(exitErr.Stderr)-60:])
		}
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", "echo started\nexec sleep 30")

		start := time.Now()
		result, err := NewExecutor(Options{Binary: bin, Timeout: 200 * time.Millisecond}, nil).
			Fetch(ctx, t.TempDir(), "https://x", nil)

		if !errors.Is(err, shared.ErrFetchTimeout) {
			t.Fatalf("expected ErrFetchTimeout, got %v", err)
		}
		if errors.Is(err, shared.ErrFetchFailed) {
			t.Error("timeout must be distinct from a failed exit")
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("process was not killed promptly: %s", elapsed)
		}
		if result == nil || result.Lines != 1 {
			t.Errorf("expected output read before the kill, got %+v", result)
		}
	})

	t.Run("parent cancellation", func(t *testing.T) {
		bin := tu.WriteScript(t, t.TempDir(), "fetch", "exec sleep 30")
		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(100*time.Millisecond, cancel)

		_, err := NewExecutor(Options{Binary: bin, Timeout: time.Minute}, nil).Fetch(cctx, t.TempDir(), "https://x", nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, shared.ErrFetchTimeout) {
			t.Error("cancellation must not be reported as timeout")
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		bin := filepath.Join(t.TempDir(), "does-not-exist")

		result, err := NewExecutor(Options{Binary: bin}, nil).Fetch(ctx, t.TempDir(), "https://x", nil)
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		if result != nil {
			t.Errorf("expected nil result when the process never started, got %+v", result)
		}
	})

	t.Run("empty source url", func(t *testing.T) {
		if _, err := NewExecutor(Options{}, nil).Fetch(ctx, t.TempDir(), "", nil); !errors.Is(err, shared.ErrNoSourceURL) {
			t.Fatalf("expected ErrNoSourceURL, got %v", err)
		}
	})
}
