package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/shared"
)

func newMock(t *testing.T) (*UserRepository, *TrackRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewUserRepository(db), NewTrackRepository(db), mock
}

func TestUserRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			user := models.NewUser(0, "", "hash")

			if err := repo.Create(ctx, user); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for empty username, got %v", err)
			}
		})

		t.Run("DuplicateUsername", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			createUser(t, repo, "alice", "")

			err := repo.Create(ctx, models.NewUser(0, "alice", "other-hash"))
			if !errors.Is(err, shared.ErrDuplicateUsername) {
				t.Fatalf("expected ErrDuplicateUsername, got %v", err)
			}
		})

		t.Run("UsernameSharingLibraryDirectory", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			createUser(t, repo, "bob_smith", "")

			err := repo.Create(ctx, models.NewUser(0, "bob smith", "hash"))
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}

			users, err := repo.List(ctx, nil)
			if err != nil {
				t.Fatalf("failed to list users: %v", err)
			}
			if len(users) != 1 {
				t.Errorf("expected only bob_smith to be stored, got %d users", len(users))
			}
		})

		t.Run("BeginError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

			err := repo.Create(ctx, models.NewUser(0, "alice", "hash"))
			if err == nil || !strings.Contains(err.Error(), "failed to begin transaction") {
				t.Fatalf("expected begin error, got %v", err)
			}
		})

		t.Run("SequenceError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("UPDATE users_sequence").WillReturnError(errors.New("no such table"))
			mock.ExpectRollback()

			err := repo.Create(ctx, models.NewUser(0, "alice", "hash"))
			if err == nil || !strings.Contains(err.Error(), "failed to generate sequence") {
				t.Fatalf("expected sequence error, got %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))

			if _, err := repo.Get(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			user := models.NewUser(0, "alice", "hash")
			user.SetID("nonexistent-id")

			if err := repo.Update(ctx, user); !errors.Is(err, shared.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})

		t.Run("RenameToUnsafeUsername", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			bob := createUser(t, repo, "bob", "")

			renamed := models.NewUser(bob.Sequence(), "bob/../alice", bob.PasswordHash())
			renamed.SetID(bob.ID())
			if err := repo.Update(ctx, renamed); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("RenameToTakenUsername", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))
			createUser(t, repo, "alice", "")
			bob := createUser(t, repo, "bob", "")

			renamed := models.NewUser(bob.Sequence(), "alice", bob.PasswordHash())
			renamed.SetID(bob.ID())
			if err := repo.Update(ctx, renamed); !errors.Is(err, shared.ErrDuplicateUsername) {
				t.Fatalf("expected ErrDuplicateUsername, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewUserRepository(setupTestDB(t))

			if err := repo.Delete(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("QueryError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(errors.New("disk I/O error"))

			if _, err := repo.ListEligible(ctx); err == nil || !strings.Contains(err.Error(), "failed to query users") {
				t.Fatalf("expected query error, got %v", err)
			}
		})

		t.Run("ScanError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			rows := sqlmock.NewRows([]string{"id"}).AddRow("only-one-column")
			mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(rows)

			if _, err := repo.List(ctx, nil); err == nil || !strings.Contains(err.Error(), "failed to scan user") {
				t.Fatalf("expected scan error, got %v", err)
			}
		})
	})

	t.Run("UpdateLastSync", func(t *testing.T) {
		t.Run("ExecError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			mock.ExpectExec("UPDATE users").WillReturnError(errors.New("database is locked"))

			advanced, err := repo.UpdateLastSync(ctx, "id-1", time.Now())
			if err == nil || advanced {
				t.Fatalf("expected error and no advance, got advanced=%v err=%v", advanced, err)
			}
		})

		t.Run("RowsAffectedError", func(t *testing.T) {
			repo, _, mock := newMock(t)
			mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewErrorResult(errors.New("driver gone")))

			if _, err := repo.UpdateLastSync(ctx, "id-1", time.Now()); err == nil || !strings.Contains(err.Error(), "affected rows") {
				t.Fatalf("expected affected rows error, got %v", err)
			}
		})
	})
}

func TestTrackRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertIfAbsent", func(t *testing.T) {
		t.Run("ExecError", func(t *testing.T) {
			_, repo, mock := newMock(t)
			mock.ExpectExec("INSERT INTO tracks").WillReturnError(errors.New("disk full"))

			track := models.NewTrack("user-1", "/lib/a.mp3", models.Tags{}.Resolve("a.mp3"))
			inserted, err := repo.InsertIfAbsent(ctx, track)
			if err == nil || inserted {
				t.Fatalf("expected insert error, got inserted=%v err=%v", inserted, err)
			}
			if track.ID != "" {
				t.Errorf("track ID should stay empty on failure, got %s", track.ID)
			}
		})

		t.Run("IgnoredConflict", func(t *testing.T) {
			_, repo, mock := newMock(t)
			mock.ExpectExec("INSERT INTO tracks").WillReturnResult(sqlmock.NewResult(0, 0))

			track := models.NewTrack("user-1", "/lib/a.mp3", models.Tags{}.Resolve("a.mp3"))
			inserted, err := repo.InsertIfAbsent(ctx, track)
			if err != nil || inserted {
				t.Fatalf("expected silent no-op, got inserted=%v err=%v", inserted, err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTrackRepository(setupTestDB(t))

			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("CountByUser", func(t *testing.T) {
		t.Run("QueryError", func(t *testing.T) {
			_, repo, mock := newMock(t)
			mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("disk I/O error"))

			if _, err := repo.CountByUser(ctx, "user-1"); err == nil {
				t.Fatal("expected count error")
			}
		})
	})
}
