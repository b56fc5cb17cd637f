package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundsync/internal/shared"
)

const (
	// stderrTailSize bounds the diagnostic excerpt kept for a failed run.
	stderrTailSize = 2048
	// killGrace is how long Wait keeps reading after the process is gone before closing the pipes.
	killGrace = 5 * time.Second
	// maxLineSize caps a single output line; progress lines are far shorter.
	maxLineSize = 1 << 20
)

// ExitError reports a fetch process that exited with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%v: exit status %d", shared.ErrFetchFailed, e.Code)
	}
	return fmt.Sprintf("%v: exit status %d: %s", shared.ErrFetchFailed, e.Code, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return shared.ErrFetchFailed
}

// Result summarises one fetch run. Counters reflect classified output, not files on disk.
type Result struct {
	PlaylistSize int
	PlaylistName string
	Downloaded   int
	Skipped      int
	Lines        int
	Duration     time.Duration
}

func (r *Result) apply(ev Event) {
	r.Lines++
	switch ev.Kind {
	case PlaylistStarted:
		r.PlaylistSize = ev.Count
	case ItemDownloaded:
		r.Downloaded++
	case ItemSkipped:
		r.Skipped++
	case PlaylistFinished:
		r.PlaylistName = ev.Name
	}
}

// Summary renders the counters as a single log line.
func (r *Result) Summary() string {
	return fmt.Sprintf("Fetch finished in %s: %d downloaded, %d skipped, %d announced",
		r.Duration.Round(time.Second), r.Downloaded, r.Skipped, r.PlaylistSize)
}

// Executor runs the fetch tool with a fixed [Options] policy.
type Executor struct {
	opts   Options
	logger *log.Logger
}

// NewExecutor creates an [Executor]. Zero-valued options fall back to the package defaults.
func NewExecutor(opts Options, logger *log.Logger) *Executor {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Executor{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective invocation policy.
func (e *Executor) Options() Options {
	return e.opts
}

// Fetch downloads url into dir, creating dir if needed.
//
// onEvent, when non-nil, is called from a single goroutine for every output line in the order
// lines were read. Fetch returns a non-nil [Result] whenever the process was started, including
// on failure.
func (e *Executor) Fetch(ctx context.Context, dir, url string, onEvent func(Event)) (*Result, error) {
	if url == "" {
		return nil, shared.ErrNoSourceURL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	args := BuildArgs(e.opts, dir, url)
	cmd := exec.CommandContext(runCtx, e.opts.Binary, args...)
	cmd.Dir = dir
	cmd.WaitDelay = killGrace
	killProcessGroup(cmd)

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	e.logger.Debug("starting fetch", "binary", e.opts.Binary, "dir", dir, "timeout", e.opts.Timeout)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		outW.Close()
		errW.Close()
		return nil, fmt.Errorf("%w: failed to start %s: %v", shared.ErrFetchFailed, e.opts.Binary, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		outW.Close()
		errW.Close()
		waitErr <- err
	}()

	lines := make(chan Event)
	var wg sync.WaitGroup
	wg.Add(2)
	go readLines(outR, Stdout, lines, &wg)
	go readLines(errR, Stderr, lines, &wg)
	go func() {
		wg.Wait()
		close(lines)
	}()

	result := &Result{}
	tail := &tailBuffer{max: stderrTailSize}
	for ev := range lines {
		result.apply(ev)
		if ev.Stream == Stderr {
			tail.add(ev.Line)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}

	err := <-waitErr
	result.Duration = time.Since(start)

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		err = nil
	}

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("fetch aborted: %w", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, fmt.Errorf("%w after %s", shared.ErrFetchTimeout, e.opts.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ExitError{Code: exitErr.ExitCode(), Stderr: tail.String()}
	}
	return result, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
}

// readLines classifies every line of r and sends it to out. Lines longer than maxLineSize
// end classification for the stream; the rest is drained so the process never blocks on a
// full pipe.
func readLines(r io.Reader, stream Stream, out chan<- Event, wg *sync.WaitGroup) {
	defer wg.Done()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sc.Split(scanLines)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ev := Classify(line)
		ev.Stream = stream
		out <- ev
	}

	io.Copy(io.Discard, r)
}

// scanLines is [bufio.ScanLines] treating a lone '\r' as a line break, since progress output
// rewrites the current line with carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) add(line string) {
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
