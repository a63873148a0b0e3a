// Package store persists account records. UserStore is the only way the
// account service touches storage; the backends here are MongoDB, anything
// gorm speaks (Postgres, SQLite) and an in-process map.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique field already in use")
)

// Unique fields.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// ConflictError reports which unique field collided.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in use", e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Scope restricts FindByID.
type Scope int

const (
	// AnyState matches active and inactive records (profile paths).
	AnyState Scope = iota
	// ActiveOnly matches active records only (authorization paths).
	ActiveOnly
)

type UserStore interface {
	// Insert stores a new record. A duplicate username or email fails with a
	// *ConflictError even when two inserts race.
	Insert(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string, scope Scope) (models.User, error)
	// FindByUsername and FindByEmail only see active records.
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByResetToken(ctx context.Context, digest string) (models.User, error)
	FindByVerificationToken(ctx context.Context, digest string) (models.User, error)
	// Update replaces the record with user.ID. Last writer wins.
	Update(ctx context.Context, user models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	// PurgeExpiredResetTokens clears reset tokens that expired before now.
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NormalizeLimit applies the default page size and caps it.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

var (
	_ UserStore = (*MemoryStore)(nil)
	_ UserStore = (*GormStore)(nil)
	_ UserStore = (*MongoStore)(nil)
)
