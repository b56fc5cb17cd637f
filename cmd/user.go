package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/soundsync/internal/formatter"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/urfave/cli/v3"
)

// userView is the JSON shape of a user; the credential hash is never printed.
type userView struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"sequence"`
	Username  string     `json:"username"`
	SourceURL string     `json:"source_url,omitempty"`
	LastSync  *time.Time `json:"last_sync"`
	CreatedAt time.Time  `json:"created_at"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:        u.ID(),
		Sequence:  u.Sequence(),
		Username:  u.Username(),
		SourceURL: u.SourceURL(),
		LastSync:  u.LastSync(),
		CreatedAt: u.CreatedAt(),
	}
}

// UserAdd registers a user. With --sync and a source URL the first sync runs immediately.
func (r *Runner) UserAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	hash, err := models.HashPassword(cmd.String("password"))
	if err != nil {
		return err
	}

	user := models.NewUser(0, cmd.String("username"), hash)
	user.SetSourceURL(cmd.String("source-url"))
	if err := r.users.Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("user created", "username", user.Username(), "sequence", user.Sequence())
	r.writePlain("✓ Created user %s\n", user.Username())

	if cmd.Bool("sync") {
		return r.syncUser(ctx, user)
	}
	return nil
}

// UserSetSource replaces a user's source URL. With --sync a sync runs against the new URL.
func (r *Runner) UserSetSource(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	user, err := r.users.GetByUsername(ctx, cmd.String("username"))
	if err != nil {
		return err
	}

	user.SetSourceURL(cmd.String("url"))
	if err := r.users.SetSourceURL(ctx, user.ID(), user.SourceURL()); err != nil {
		return err
	}

	if user.Eligible() {
		r.writePlain("✓ Source URL for %s set to %s\n", user.Username(), user.SourceURL())
	} else {
		r.writePlain("✓ Source URL for %s cleared\n", user.Username())
	}

	if cmd.Bool("sync") {
		return r.syncUser(ctx, user)
	}
	return nil
}

// UserResetPassword replaces a user's credential hash.
func (r *Runner) UserResetPassword(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	user, err := r.users.GetByUsername(ctx, cmd.String("username"))
	if err != nil {
		return err
	}

	hash, err := models.HashPassword(cmd.String("password"))
	if err != nil {
		return err
	}
	user.SetPasswordHash(hash)

	if err := r.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	r.writePlain("✓ Password reset for %s\n", user.Username())
	return nil
}

// UserList prints every user ordered by sequence.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	users, err := r.users.List(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, newUserView(u))
		}
		return r.writeJSON(views, true)
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(users)))
	for _, u := range users {
		r.writePlain("%s\n", formatter.UserLine(u))
	}
	return nil
}
