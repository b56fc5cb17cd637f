package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/shared"
)

const trackColumns = `id, user_id, title, artist, album, year, genre, filepath, thumbnail, created_at`

// TrackRepository persists [models.Track] rows.
//
// Rows are append-only: (user_id, filepath) is unique and a second insert for the same key
// is ignored rather than updating any column.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// InsertIfAbsent inserts track unless its owner already has a row for the same file path.
//
// inserted is false when the key already existed; that case is not an error.
func (r *TrackRepository) InsertIfAbsent(ctx context.Context, track *models.Track) (bool, error) {
	if err := track.Validate(); err != nil {
		return false, fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	id := shared.GenerateID()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tracks (id, user_id, title, artist, album, year, genre, filepath, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, filepath) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		id,
		track.UserID,
		track.Title,
		track.Artist,
		track.Album,
		track.Year,
		track.Genre,
		track.FilePath,
		nullString(track.Thumbnail),
		track.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	track.ID = id
	return true, nil
}

// Exists reports whether userID already owns a track for path.
func (r *TrackRepository) Exists(ctx context.Context, userID, path string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tracks WHERE user_id = ? AND filepath = ?)`

	if err := r.db.QueryRowContext(ctx, query, userID, path).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check track: %w", err)
	}
	return exists, nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`

	track, err := scanTrack(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	return track, err
}

// ListByUser returns every track owned by userID ordered by artist, then title.
func (r *TrackRepository) ListByUser(ctx context.Context, userID string) ([]*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE user_id = ? ORDER BY artist, title, filepath`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// CountByUser returns the number of tracks owned by userID.
func (r *TrackRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// scanTrack scans a single row into a [models.Track]
func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		track     models.Track
		thumbnail sql.NullString
	)

	err := row.Scan(
		&track.ID,
		&track.UserID,
		&track.Title,
		&track.Artist,
		&track.Album,
		&track.Year,
		&track.Genre,
		&track.FilePath,
		&thumbnail,
		&track.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track.Thumbnail = thumbnail.String
	return &track, nil
}
