package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/repositories"
	"github.com/desertthunder/soundsync/internal/shared"
	tu "github.com/desertthunder/soundsync/internal/testing"
)

func setupStore(t *testing.T) (*sql.DB, *repositories.TrackRepository, string) {
	t.Helper()

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	user := models.NewUser(0, "alice", "hash")
	if err := repositories.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return db, repositories.NewTrackRepository(db), user.ID()
}

type logRecorder struct {
	lines []string
}

func (r *logRecorder) logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *logRecorder) contains(sub string) bool {
	for _, l := range r.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func TestScan(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed directory", func(t *testing.T) {
		_, tracks, userID := setupStore(t)
		dir := t.TempDir()
		thumbs := filepath.Join(dir, "thumbnails")

		tu.WriteTaggedMP3(t, filepath.Join(dir, "a.mp3"), tu.MP3Fixture{Title: "Song A", Artist: "Band", Artwork: tu.PNG()})
		tu.WriteUntaggedMP3(t, filepath.Join(dir, "b.mp3"))
		tu.WriteCorruptMP3(t, filepath.Join(dir, "c.mp3"))
		tu.MustWriteFile(t, filepath.Join(dir, "notes.txt"), []byte("not audio"))
		tu.WriteUntaggedMP3(t, filepath.Join(thumbs, "stray.mp3"))

		rec := &logRecorder{}
		scanner := New(tracks, ".mp3", nil)
		result, err := scanner.Scan(ctx, Request{UserID: userID, Dir: dir, ThumbnailDir: thumbs}, rec.logf)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		if result.Scanned != 3 || result.Inserted != 2 || result.Failed != 1 || result.Existing != 0 {
			t.Errorf("unexpected counters %+v", result)
		}
		if len(result.Errors) != 1 || filepath.Base(result.Errors[0].Path) != "c.mp3" {
			t.Fatalf("expected one error for c.mp3, got %v", result.Errors)
		}
		if !rec.contains("Error reading c.mp3") {
			t.Errorf("expected logged read error, got %v", rec.lines)
		}

		stored, err := tracks.ListByUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(stored))
		}

		byName := map[string]*models.Track{}
		for _, tr := range stored {
			byName[tr.FileName()] = tr
		}

		a := byName["a.mp3"]
		if a == nil || a.Title != "Song A" || a.Artist != "Band" || a.Album != models.UnknownTag {
			t.Errorf("unexpected track for a.mp3: %+v", a)
		}
		if want := filepath.Join(thumbs, "a.png"); a == nil || a.Thumbnail != want {
			t.Errorf("expected thumbnail %s, got %+v", want, a)
		}
		tu.AssertFileExists(t, filepath.Join(thumbs, "a.png"))

		b := byName["b.mp3"]
		if b == nil {
			t.Fatal("expected track for b.mp3")
		}
		if b.Title != "b.mp3" || b.Artist != models.UnknownTag || b.Album != models.UnknownTag || b.Year != "" || b.Genre != "" {
			t.Errorf("expected defaults for b.mp3, got %+v", b)
		}
		if b.Thumbnail != "" {
			t.Errorf("expected no thumbnail for b.mp3, got %s", b.Thumbnail)
		}
	})

	t.Run("rescan is idempotent", func(t *testing.T) {
		_, tracks, userID := setupStore(t)
		dir := t.TempDir()

		tu.WriteTaggedMP3(t, filepath.Join(dir, "a.mp3"), tu.MP3Fixture{Title: "Song A", Artist: "Band"})
		tu.WriteUntaggedMP3(t, filepath.Join(dir, "sub", "b.mp3"))
		tu.WriteCorruptMP3(t, filepath.Join(dir, "c.mp3"))

		scanner := New(tracks, ".mp3", nil)
		req := Request{UserID: userID, Dir: dir, ThumbnailDir: filepath.Join(dir, "thumbnails")}

		if _, err := scanner.Scan(ctx, req, nil); err != nil {
			t.Fatalf("first Scan() error = %v", err)
		}
		second, err := scanner.Scan(ctx, req, nil)
		if err != nil {
			t.Fatalf("second Scan() error = %v", err)
		}

		if second.Inserted != 0 || second.Existing != 2 || second.Failed != 1 {
			t.Errorf("unexpected second scan counters %+v", second)
		}

		count, _ := tracks.CountByUser(ctx, userID)
		if count != 2 {
			t.Errorf("expected track count to stay at 2, got %d", count)
		}
	})

	t.Run("changed tags are not re-ingested", func(t *testing.T) {
		_, tracks, userID := setupStore(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "a.mp3")
		scanner := New(tracks, "mp3", nil)

		tu.WriteTaggedMP3(t, path, tu.MP3Fixture{Title: "Before"})
		scanner.Scan(ctx, Request{UserID: userID, Dir: dir}, nil)

		tu.WriteTaggedMP3(t, path, tu.MP3Fixture{Title: "After"})
		scanner.Scan(ctx, Request{UserID: userID, Dir: dir}, nil)

		stored, _ := tracks.ListByUser(ctx, userID)
		if len(stored) != 1 || stored[0].Title != "Before" {
			t.Errorf("expected original row to be kept, got %+v", stored)
		}
	})

	t.Run("full tags and case-insensitive extension", func(t *testing.T) {
		_, tracks, userID := setupStore(t)
		dir := t.TempDir()
		tu.WriteTaggedMP3(t, filepath.Join(dir, "LOUD.MP3"), tu.MP3Fixture{
			Title: "Loud", Artist: "Band", Album: "Record", Year: "1999", Genre: "Noise",
		})

		result, err := New(tracks, ".mp3", nil).Scan(ctx, Request{UserID: userID, Dir: dir}, nil)
		if err != nil || result.Inserted != 1 {
			t.Fatalf("expected 1 insert, got %+v err=%v", result, err)
		}

		stored, _ := tracks.ListByUser(ctx, userID)
		got := stored[0]
		if got.Album != "Record" || got.Year != "1999" || got.Genre != "Noise" {
			t.Errorf("unexpected tags %+v", got)
		}
	})

	t.Run("missing directory fails the scan", func(t *testing.T) {
		_, tracks, userID := setupStore(t)

		_, err := New(tracks, ".mp3", nil).Scan(ctx, Request{UserID: userID, Dir: filepath.Join(t.TempDir(), "nope")}, nil)
		if !errors.Is(err, shared.ErrScanFailed) {
			t.Fatalf("expected ErrScanFailed, got %v", err)
		}
	})

	t.Run("store failure fails the scan", func(t *testing.T) {
		dir := t.TempDir()
		tu.WriteUntaggedMP3(t, filepath.Join(dir, "a.mp3"))

		store := &failingStore{err: errors.New("database is locked")}
		_, err := New(store, ".mp3", nil).Scan(ctx, Request{UserID: "user-1", Dir: dir}, nil)
		if !errors.Is(err, shared.ErrScanFailed) {
			t.Fatalf("expected ErrScanFailed, got %v", err)
		}
	})

	t.Run("canceled context stops the walk", func(t *testing.T) {
		dir := t.TempDir()
		tu.WriteUntaggedMP3(t, filepath.Join(dir, "a.mp3"))
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := New(&failingStore{}, ".mp3", nil).Scan(cctx, Request{UserID: "user-1", Dir: dir}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("owner is required", func(t *testing.T) {
		_, err := New(&failingStore{}, ".mp3", nil).Scan(ctx, Request{Dir: t.TempDir()}, nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

type failingStore struct {
	err error
}

func (s *failingStore) Exists(context.Context, string, string) (bool, error) {
	return false, s.err
}

func (s *failingStore) InsertIfAbsent(context.Context, *models.Track) (bool, error) {
	return false, s.err
}

func TestReadTags(t *testing.T) {
	dir := t.TempDir()

	t.Run("tagged with artwork", func(t *testing.T) {
		path := filepath.Join(dir, "tagged.mp3")
		tu.WriteTaggedMP3(t, path, tu.MP3Fixture{Title: "Song", Artist: "Band", Artwork: tu.PNG()})

		tags, art, err := ReadTags(path)
		if err != nil {
			t.Fatalf("ReadTags() error = %v", err)
		}
		if tags.Title != "Song" || tags.Artist != "Band" || tags.Album != "" {
			t.Errorf("unexpected raw tags %+v", tags)
		}
		if string(art) != string(tu.PNG()) {
			t.Errorf("artwork bytes not returned intact")
		}
	})

	t.Run("no header", func(t *testing.T) {
		path := filepath.Join(dir, "plain.mp3")
		tu.WriteUntaggedMP3(t, path)

		tags, art, err := ReadTags(path)
		if err != nil {
			t.Fatalf("ReadTags() error = %v", err)
		}
		if tags != (models.Tags{}) || art != nil {
			t.Errorf("expected empty tags, got %+v art=%d", tags, len(art))
		}
	})

	t.Run("corrupt header", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.mp3")
		tu.WriteCorruptMP3(t, path)

		if _, _, err := ReadTags(path); err == nil {
			t.Error("expected error for corrupt header")
		}
	})
}

func TestThumbnailName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		artwork  []byte
		want     string
	}{
		{name: "png artwork", fileName: "Band - Song A.mp3", artwork: tu.PNG(), want: "Band_-_Song_A.png"},
		{name: "jpeg artwork", fileName: "a.mp3", artwork: []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), want: "a.jpg"},
		{name: "unknown bytes", fileName: "a.mp3", artwork: []byte{0x01, 0x02, 0x03}, want: "a.jpg"},
		{name: "unsafe characters", fileName: "what?/why*.mp3", artwork: nil, want: "what__why_.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThumbnailName(tt.fileName, tt.artwork); got != tt.want {
				t.Errorf("ThumbnailName(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}
