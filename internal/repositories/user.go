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

var _ models.Repository[*models.User] = (*UserRepository)(nil)

const userColumns = `id, sequence, username, password_hash, source_url, last_sync, created_at, updated_at`

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence.
//
// A taken username is reported as [shared.ErrDuplicateUsername].
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	id := shared.GenerateID()
	user.SetID(id)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)

	query := `
		INSERT INTO users (id, sequence, username, password_hash, source_url, last_sync, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		id,
		sequence,
		user.Username(),
		user.PasswordHash(),
		nullString(user.SourceURL()),
		nullTime(user.LastSync()),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateUsername, user.Username())
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return user, err
}

// GetByUsername retrieves a user by its unique username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, username)
	}
	return user, err
}

// Update modifies the username, credential hash and source URL of an existing user.
//
// last_sync is owned by the sync pipeline and is only written by [UserRepository.UpdateLastSync].
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET username = ?, password_hash = ?, source_url = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Username(),
		user.PasswordHash(),
		nullString(user.SourceURL()),
		now,
		user.ID(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateUsername, user.Username())
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectAffected(result, user.ID())
}

// Delete removes a user by ID. The user's tracks are removed by the foreign key cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves all users matching the given criteria.
//
// Supported criteria: "username" (string) and "eligible" (bool, non-empty source URL).
func (r *UserRepository) List(ctx context.Context, criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	args := []any{}

	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	if eligible, ok := criteria["eligible"].(bool); ok && eligible {
		query += " AND source_url IS NOT NULL AND source_url != ''"
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// ListEligible returns every user with a non-empty source URL.
//
// The rows are fully read and the connection released before returning.
func (r *UserRepository) ListEligible(ctx context.Context) ([]*models.User, error) {
	return r.List(ctx, map[string]any{"eligible": true})
}

// SetSourceURL replaces the source URL of a user; an empty url clears it.
func (r *UserRepository) SetSourceURL(ctx context.Context, id, url string) error {
	query := `UPDATE users SET source_url = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, nullString(url), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set source URL: %w", err)
	}

	return expectAffected(result, id)
}

// UpdateLastSync records at as the user's last successful sync.
//
// The timestamp never moves backwards: an older value leaves the row untouched and
// reports advanced == false.
func (r *UserRepository) UpdateLastSync(ctx context.Context, id string, at time.Time) (bool, error) {
	at = at.UTC()
	query := `
		UPDATE users
		SET last_sync = ?
		WHERE id = ? AND (last_sync IS NULL OR last_sync < ?)
	`

	result, err := r.db.ExecContext(ctx, query, at, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to update last sync: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser scans a single row into a [models.User]
func scanUser(row rowScanner) (*models.User, error) {
	var (
		id           string
		sequence     int
		username     string
		passwordHash string
		sourceURL    sql.NullString
		lastSync     sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&id, &sequence, &username, &passwordHash, &sourceURL, &lastSync, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user := models.NewUser(sequence, username, passwordHash)
	user.SetID(id)
	user.SetSourceURL(sourceURL.String)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if lastSync.Valid {
		t := lastSync.Time
		user.SetLastSync(&t)
	}

	return user, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
