// Package scanner walks a user's library directory and records every audio file as a track.
//
// Tags and the first embedded picture are read from ID3v2 frames. A file whose tags cannot
// be read is reported and skipped; the walk continues. Tracks already stored for the same
// (owner, path) are left untouched, so scanning an unchanged directory twice is a no-op.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/shared"
)

// DefaultExtension is the audio file extension scanned when none is configured.
const DefaultExtension = ".mp3"

const defaultThumbnailExt = ".jpg"

// TrackStore is the subset of the track repository used while scanning.
type TrackStore interface {
	Exists(ctx context.Context, userID, path string) (bool, error)
	InsertIfAbsent(ctx context.Context, track *models.Track) (bool, error)
}

// Request identifies one scan.
//
// ThumbnailDir is skipped while walking when it lies inside Dir.
type Request struct {
	UserID       string
	Dir          string
	ThumbnailDir string
}

// FileError is a per-file failure that did not stop the scan.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result counts what a scan did with each candidate file.
//
// Scanned == Inserted + Existing + Failed.
type Result struct {
	Scanned  int
	Inserted int
	Existing int
	Failed   int
	Errors   []FileError
	Duration time.Duration
}

// Summary renders the counters as a single log line.
func (r *Result) Summary() string {
	return fmt.Sprintf("Scan complete: %d files, %d added, %d already known, %d unreadable",
		r.Scanned, r.Inserted, r.Existing, r.Failed)
}

// Logf receives human-readable progress lines.
type Logf func(format string, args ...any)

// Scanner extracts metadata from audio files into a [TrackStore].
type Scanner struct {
	store  TrackStore
	ext    string
	logger *log.Logger
}

// New creates a [Scanner] for files ending in ext (case-insensitive).
func New(store TrackStore, ext string, logger *log.Logger) *Scanner {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Scanner{store: store, ext: strings.ToLower(ext), logger: logger}
}

// Scan walks req.Dir recursively and stores a track for every new audio file.
//
// Unreadable files are logged through logf and collected in [Result.Errors]. The scan itself
// fails with [shared.ErrScanFailed] only when the root directory cannot be read or the store
// rejects a write.
func (s *Scanner) Scan(ctx context.Context, req Request, logf Logf) (*Result, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: scan requires an owner", shared.ErrInvalidInput)
	}

	info, err := os.Stat(req.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrScanFailed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrScanFailed, req.Dir)
	}

	start := time.Now()
	result := &Result{}
	thumbs := filepath.Clean(req.ThumbnailDir)

	walkErr := filepath.WalkDir(req.Dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == req.Dir {
				return err
			}
			s.fail(result, path, err, logf)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if req.ThumbnailDir != "" && filepath.Clean(path) == thumbs {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.ToLower(filepath.Ext(path)) != s.ext {
			return nil
		}

		return s.scanFile(ctx, req, path, result, logf)
	})

	result.Duration = time.Since(start)
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return result, walkErr
		}
		return result, fmt.Errorf("%w: %v", shared.ErrScanFailed, walkErr)
	}
	return result, nil
}

func (s *Scanner) scanFile(ctx context.Context, req Request, path string, result *Result, logf Logf) error {
	result.Scanned++

	exists, err := s.store.Exists(ctx, req.UserID, path)
	if err != nil {
		return err
	}
	if exists {
		result.Existing++
		return nil
	}

	tags, artwork, err := ReadTags(path)
	if err != nil {
		s.fail(result, path, err, logf)
		return nil
	}

	name := filepath.Base(path)
	track := models.NewTrack(req.UserID, path, tags.Resolve(name))

	if len(artwork) > 0 && req.ThumbnailDir != "" {
		thumb, err := writeThumbnail(req.ThumbnailDir, name, artwork)
		if err != nil {
			logf("Thumbnail for %s not saved: %v", name, err)
		} else {
			track.Thumbnail = thumb
		}
	}

	inserted, err := s.store.InsertIfAbsent(ctx, track)
	if err != nil {
		return err
	}
	if !inserted {
		result.Existing++
		return nil
	}

	result.Inserted++
	logf("Added: %s", track.Title)
	return nil
}

func (s *Scanner) fail(result *Result, path string, err error, logf Logf) {
	result.Failed++
	result.Errors = append(result.Errors, FileError{Path: path, Err: err})
	logf("Error reading %s: %v", filepath.Base(path), err)
	s.logger.Warn("skipping unreadable file", "path", path, "error", err)
}

// ReadTags parses the ID3v2 tag of path and returns the raw (unresolved) fields together
// with the bytes of the first attached picture, if any.
//
// A file without any ID3v2 header yields empty tags and no error.
func ReadTags(path string) (models.Tags, []byte, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return models.Tags{}, nil, fmt.Errorf("failed to read tags: %w", err)
	}
	defer tag.Close()

	tags := models.Tags{
		Title:  clean(tag.Title()),
		Artist: clean(tag.Artist()),
		Album:  clean(tag.Album()),
		Year:   clean(tag.Year()),
		Genre:  clean(tag.Genre()),
	}
	for _, id := range []string{"TDRC", "TYER"} {
		if tags.Year != "" {
			break
		}
		tags.Year = clean(tag.GetTextFrame(id).Text)
	}

	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		if pic, ok := f.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			return tags, pic.Picture, nil
		}
	}
	return tags, nil, nil
}

// ThumbnailName derives the artwork file name for an audio file: the sanitised base name
// without its extension plus an extension matching the image type, ".jpg" when unknown.
func ThumbnailName(fileName string, artwork []byte) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	ext := defaultThumbnailExt
	if mtype := mimetype.Detect(artwork); strings.HasPrefix(mtype.String(), "image/") && mtype.Extension() != "" {
		ext = mtype.Extension()
	}
	return shared.SafeName(base) + ext
}

func writeThumbnail(dir, fileName string, artwork []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ThumbnailName(fileName, artwork))
	if err := os.WriteFile(path, artwork, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
