package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// UnknownTag is recorded for artist and album when a file carries no such tag.
const UnknownTag = "Unknown"

// Tags are the descriptive fields read from an audio file. Empty fields mean "absent".
type Tags struct {
	Title  string
	Artist string
	Album  string
	Year   string
	Genre  string
}

// Resolve fills absent fields with the library defaults: title falls back to the
// file name, artist and album to [UnknownTag]; year and genre stay empty.
func (t Tags) Resolve(fileName string) Tags {
	if t.Title == "" {
		t.Title = fileName
	}
	if t.Artist == "" {
		t.Artist = UnknownTag
	}
	if t.Album == "" {
		t.Album = UnknownTag
	}
	return t
}

// Track is one ingested audio file owned by a single user.
//
// (UserID, FilePath) is unique; tracks are never updated after insertion.
type Track struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Year      string    `json:"year"`
	Genre     string    `json:"genre"`
	FilePath  string    `json:"filepath"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTrack builds a [Track] for path from already-resolved tags.
func NewTrack(userID, path string, tags Tags) *Track {
	return &Track{
		UserID:    userID,
		Title:     tags.Title,
		Artist:    tags.Artist,
		Album:     tags.Album,
		Year:      tags.Year,
		Genre:     tags.Genre,
		FilePath:  path,
		CreatedAt: time.Now().UTC(),
	}
}

// FileName returns the base name of the source file.
func (t *Track) FileName() string {
	return filepath.Base(t.FilePath)
}

func (t *Track) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("track owner is required")
	}
	if t.FilePath == "" {
		return fmt.Errorf("track file path is required")
	}
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}
