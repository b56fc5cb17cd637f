// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

// PNGHeader is the signature of a PNG image; enough for content sniffing.
const PNGHeader = "\x89PNG\r\n\x1a\n"

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// WriteScript writes an executable /bin/sh script named name into dir and returns its path.
//
// The script receives the fetch arguments as "$@"; tests use it in place of the real fetch tool.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("Failed to write script %s: %v", path, err)
	}
	return path
}

// MP3Fixture describes the tag content of a generated audio file.
type MP3Fixture struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Genre   string
	Artwork []byte
}

// WriteTaggedMP3 writes an ID3v2.4 tag built from f followed by silent padding.
func WriteTaggedMP3(t *testing.T, path string, f MP3Fixture) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}

	tag := id3v2.NewEmptyTag()
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if f.Title != "" {
		tag.SetTitle(f.Title)
	}
	if f.Artist != "" {
		tag.SetArtist(f.Artist)
	}
	if f.Album != "" {
		tag.SetAlbum(f.Album)
	}
	if f.Year != "" {
		tag.SetYear(f.Year)
	}
	if f.Genre != "" {
		tag.SetGenre(f.Genre)
	}
	if len(f.Artwork) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/png",
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     f.Artwork,
		})
	}

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer out.Close()

	if _, err := tag.WriteTo(out); err != nil {
		t.Fatalf("Failed to write tag to %s: %v", path, err)
	}
	if _, err := out.Write(make([]byte, 256)); err != nil {
		t.Fatalf("Failed to write audio padding to %s: %v", path, err)
	}
}

// WriteUntaggedMP3 writes a file with no ID3 header at all.
func WriteUntaggedMP3(t *testing.T, path string) {
	t.Helper()
	MustWriteFile(t, path, make([]byte, 512))
}

// WriteCorruptMP3 writes a file whose ID3 header declares an unsupported version and size.
func WriteCorruptMP3(t *testing.T, path string) {
	t.Helper()
	MustWriteFile(t, path, append([]byte("ID3\x02\x00\x00\xff\xff\xff\xff"), make([]byte, 64)...))
}

// PNG returns a tiny byte slice recognised as a PNG image.
func PNG() []byte {
	return append([]byte(PNGHeader), make([]byte, 32)...)
}
