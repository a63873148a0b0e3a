package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(username, email string) models.User {
	return models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Profile:      models.Profile{FirstName: username},
		Role:         models.RoleUser,
		IsActive:     true,
	}
}

func ptr[T any](v T) *T { return &v }

// runStoreContract exercises the behaviour every UserStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) UserStore) {
	ctx := context.Background()

	t.Run("insert and find", func(t *testing.T) {
		s := newStore(t)
		in := newUser("alice", "a@x.com")
		in.Profile.Age = ptr(30)
		in.Profile.Address = &models.Address{City: "Oslo", Country: "NO"}

		created, err := s.Insert(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.FindByID(ctx, created.ID, AnyState)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "a@x.com", got.Email)
		require.NotNil(t, got.Profile.Age)
		assert.Equal(t, 30, *got.Profile.Age)
		require.NotNil(t, got.Profile.Address)
		assert.Equal(t, "Oslo", got.Profile.Address.City)
		assert.True(t, got.IsActive)

		byName, err := s.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)

		byEmail, err := s.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})

	t.Run("duplicate username and email", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, newUser("bob", "b@x.com"))
		require.NoError(t, err)

		_, err = s.Insert(ctx, newUser("bob", "other@x.com"))
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict), "got %v", err)
		assert.Equal(t, FieldUsername, conflict.Field)
		assert.ErrorIs(t, err, ErrConflict)

		_, err = s.Insert(ctx, newUser("bobby", "b@x.com"))
		require.True(t, errors.As(err, &conflict), "got %v", err)
		assert.Equal(t, FieldEmail, conflict.Field)
	})

	t.Run("missing records", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByID(ctx, "nope", AnyState)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindByUsername(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Update(ctx, newUser("ghost", "g@x.com"))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotFound)
	})

	t.Run("inactive records hidden from auth lookups", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, newUser("carol", "c@x.com"))
		require.NoError(t, err)

		created.IsActive = false
		_, err = s.Update(ctx, created)
		require.NoError(t, err)

		_, err = s.FindByUsername(ctx, "carol")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindByEmail(ctx, "c@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindByID(ctx, created.ID, ActiveOnly)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.FindByID(ctx, created.ID, AnyState)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		// Inactive records still hold their username.
		_, err = s.Insert(ctx, newUser("carol", "c2@x.com"))
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("update replaces the record", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, newUser("dave", "d@x.com"))
		require.NoError(t, err)

		next := created
		next.Email = "dave@x.com"
		next.Profile.Bio = "hello"
		next.PasswordResetToken = ptr("digest")
		next.PasswordResetExpires = ptr(time.Now().UTC().Add(time.Hour))
		_, err = s.Update(ctx, next)
		require.NoError(t, err)

		got, err := s.FindByResetToken(ctx, "digest")
		require.NoError(t, err)
		assert.Equal(t, "dave@x.com", got.Email)
		assert.Equal(t, "hello", got.Profile.Bio)

		got.PasswordResetToken = nil
		got.PasswordResetExpires = nil
		_, err = s.Update(ctx, got)
		require.NoError(t, err)

		_, err = s.FindByResetToken(ctx, "digest")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update to a taken email conflicts", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, newUser("erin", "e@x.com"))
		require.NoError(t, err)
		frank, err := s.Insert(ctx, newUser("frank", "f@x.com"))
		require.NoError(t, err)

		frank.Email = "e@x.com"
		_, err = s.Update(ctx, frank)
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict), "got %v", err)
		assert.Equal(t, FieldEmail, conflict.Field)
	})

	t.Run("verification token lookup", func(t *testing.T) {
		s := newStore(t)
		u := newUser("gina", "g@x.com")
		u.EmailVerificationToken = ptr("verify-digest")
		created, err := s.Insert(ctx, u)
		require.NoError(t, err)

		got, err := s.FindByVerificationToken(ctx, "verify-digest")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = s.FindByVerificationToken(ctx, "other")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, newUser("hank", "h@x.com"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, created.ID))
		_, err = s.FindByID(ctx, created.ID, AnyState)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list with filter", func(t *testing.T) {
		s := newStore(t)
		ivy := newUser("ivy", "i@x.com")
		ivy.Profile.FirstName = "Ivy"
		ivy.Profile.Gender = "female"
		_, err := s.Insert(ctx, ivy)
		require.NoError(t, err)

		jack := newUser("jack", "j@x.com")
		jack.Profile.FirstName = "Jack"
		jack.Profile.Age = ptr(40)
		_, err = s.Insert(ctx, jack)
		require.NoError(t, err)

		_, err = s.Insert(ctx, newUser("kim", "k@x.com"))
		require.NoError(t, err)

		all, total, err := s.List(ctx, models.UserFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, all, 3)

		matched, total, err := s.List(ctx, models.UserFilter{FirstName: "ivy", Age: ptr(40)})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		names := []string{}
		for _, u := range matched {
			names = append(names, u.Username)
		}
		assert.ElementsMatch(t, []string{"ivy", "jack"}, names)

		page, total, err := s.List(ctx, models.UserFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, page, 1)
	})

	t.Run("purge expired reset tokens", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC()

		expired := newUser("liam", "l@x.com")
		expired.PasswordResetToken = ptr("old")
		expired.PasswordResetExpires = ptr(now.Add(-time.Hour))
		expired, err := s.Insert(ctx, expired)
		require.NoError(t, err)

		fresh := newUser("mia", "m@x.com")
		fresh.PasswordResetToken = ptr("new")
		fresh.PasswordResetExpires = ptr(now.Add(time.Hour))
		_, err = s.Insert(ctx, fresh)
		require.NoError(t, err)

		purgeStart := time.Now()
		n, err := s.PurgeExpiredResetTokens(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		purged, err := s.FindByID(ctx, expired.ID, AnyState)
		require.NoError(t, err)
		assert.Nil(t, purged.PasswordResetExpires)
		assert.False(t, purged.UpdatedAt.Before(purgeStart), "updatedAt %v not bumped past %v", purged.UpdatedAt, purgeStart)

		_, err = s.FindByResetToken(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindByResetToken(ctx, "new")
		assert.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
