// package formatter exports track listings (CSV, JSON, Markdown, plain text) and renders sync results
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/shared"
)

// Format names a track export format.
type Format string

const (
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts a format name case-insensitively; "" means plain text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "text":
		return FormatText, nil
	case "markdown":
		return FormatMarkdown, nil
	case FormatText, FormatCSV, FormatJSON, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want txt, csv, json or md)", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts tracks to CSV with columns: ID, Title, Artist, Album, Year, Genre, File, Thumbnail
func ExportToCSV(tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Year", "Genre", "File", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			track.Year,
			track.Genre,
			track.FilePath,
			track.Thumbnail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts tracks to an indented JSON array. No tracks yields "[]".
func ExportToJSON(tracks []*models.Track) ([]byte, error) {
	if tracks == nil {
		tracks = []*models.Track{}
	}
	data, err := json.MarshalIndent(tracks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tracks: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToMarkdown lists a user's library as a numbered Markdown list.
func ExportToMarkdown(username string, tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", username)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s%s\n", i+1, trackLine(track), yearPart(track))
	}

	return buf.Bytes(), nil
}

// ExportToText lists a user's library as plain text.
func ExportToText(username string, tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Library: %s\n", username)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, trackLine(track))
	}

	return buf.Bytes(), nil
}

// Export renders tracks in format f.
func Export(f Format, username string, tracks []*models.Track) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatJSON:
		return ExportToJSON(tracks)
	case FormatMarkdown:
		return ExportToMarkdown(username, tracks)
	case FormatText, "":
		return ExportToText(username, tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport writes the export to path and returns the path written.
//
// Defaults to {username}_tracks.{format} as the filename.
func WriteExport(f Format, username string, tracks []*models.Track, path string) (string, error) {
	if f == "" {
		f = FormatText
	}
	if path == "" {
		path = fmt.Sprintf("%s_tracks.%s", shared.SafeName(username), f)
	}

	data, err := Export(f, username, tracks)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func trackLine(t *models.Track) string {
	line := fmt.Sprintf("%s - %s", t.Artist, t.Title)
	if t.Album != "" && t.Album != models.UnknownTag {
		line += fmt.Sprintf(" (%s)", t.Album)
	}
	return line
}

func yearPart(t *models.Track) string {
	if t.Year == "" {
		return ""
	}
	return fmt.Sprintf(" [%s]", t.Year)
}
