package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/soundsync/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// User is an account whose library is synchronised from its source URL.
type User struct {
	record
	sequence     int
	username     string
	passwordHash string
	sourceURL    string
	lastSync     *time.Time
}

// NewUser creates a [User] with the given sequence, username and credential hash.
func NewUser(sequence int, username, passwordHash string) *User {
	return &User{
		record:       newRecord(),
		sequence:     sequence,
		username:     username,
		passwordHash: passwordHash,
	}
}

func (u *User) Sequence() int            { return u.sequence }
func (u *User) SetSequence(seq int)      { u.sequence = seq }
func (u *User) Username() string         { return u.username }
func (u *User) PasswordHash() string     { return u.passwordHash }
func (u *User) SetPasswordHash(h string) { u.passwordHash = h }
func (u *User) SourceURL() string        { return u.sourceURL }
func (u *User) SetSourceURL(url string)  { u.sourceURL = strings.TrimSpace(url) }
func (u *User) LastSync() *time.Time     { return u.lastSync }
func (u *User) SetLastSync(t *time.Time) { u.lastSync = t }

// Eligible reports whether the scheduled batch should sync this user.
func (u *User) Eligible() bool {
	return u.sourceURL != ""
}

// Validate checks required fields.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(u.username) == "" {
		return fmt.Errorf("username is required")
	}
	// the username is used verbatim as the library directory and log file name
	if safe := shared.SafeName(u.username); safe != u.username {
		return fmt.Errorf("username %q may only contain letters, digits, '.', '-' and '_' (try %q)", u.username, safe)
	}
	if u.passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

// HashPassword derives a bcrypt hash suitable for [NewUser].
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(plain)) == nil
}
