package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func userDocFixture(id, username, email string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "username", Value: username},
		{Key: "email", Value: email},
		{Key: "password_hash", Value: "digest"},
		{Key: "first_name", Value: "Alice"},
		{Key: "age", Value: int32(30)},
		{Key: "address", Value: bson.D{{Key: "city", Value: "Oslo"}}},
		{Key: "role", Value: "user"},
		{Key: "is_active", Value: true},
		{Key: "email_verified", Value: false},
		{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)},
		{Key: "updated_at", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert assigns id", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := s.Insert(ctx, newUser("alice", "a@x.com"))
		require.NoError(mt, err)
		assert.NotEmpty(mt, created.ID)
		assert.False(mt, created.CreatedAt.IsZero())
	})

	mt.Run("insert duplicate username", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: `E11000 duplicate key error collection: test.users index: username_1 dup key: { username: "alice" }`,
		}))

		_, err := s.Insert(ctx, newUser("alice", "a@x.com"))
		var conflict *ConflictError
		require.True(mt, errors.As(err, &conflict), "got %v", err)
		assert.Equal(mt, FieldUsername, conflict.Field)
	})

	mt.Run("insert duplicate email", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: `E11000 duplicate key error collection: test.users index: email_1 dup key: { email: "a@x.com" }`,
		}))

		_, err := s.Insert(ctx, newUser("alice", "a@x.com"))
		var conflict *ConflictError
		require.True(mt, errors.As(err, &conflict), "got %v", err)
		assert.Equal(mt, FieldEmail, conflict.Field)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "test.users", mtest.FirstBatch,
			userDocFixture("u-1", "alice", "a@x.com", created)))

		got, err := s.FindByID(ctx, "u-1", AnyState)
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", got.ID)
		assert.Equal(mt, "alice", got.Username)
		assert.Equal(mt, models.RoleUser, got.Role)
		require.NotNil(mt, got.Profile.Age)
		assert.Equal(mt, 30, *got.Profile.Age)
		require.NotNil(mt, got.Profile.Address)
		assert.Equal(mt, "Oslo", got.Profile.Address.City)
		assert.True(mt, created.Equal(got.CreatedAt))
	})

	mt.Run("find missing", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := s.FindByUsername(ctx, "ghost")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update missing", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		u := newUser("ghost", "g@x.com")
		u.ID = "missing"
		_, err := s.Update(ctx, u)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		login := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
		u := newUser("alice", "new@x.com")
		u.ID = "u-1"
		u.LastLogin = &login
		u.PasswordResetExpires = ptr(login.Add(time.Hour))
		got, err := s.Update(ctx, u)
		require.NoError(mt, err)
		assert.Equal(mt, "new@x.com", got.Email)
		assert.False(mt, got.UpdatedAt.IsZero())
		assert.Equal(mt, login.Truncate(time.Millisecond), *got.LastLogin)
		assert.Equal(mt, login.Add(time.Hour).Truncate(time.Millisecond), *got.PasswordResetExpires)
		assert.Equal(mt, got.UpdatedAt.Truncate(time.Millisecond), got.UpdatedAt)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, s.Delete(ctx, "missing"), ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch,
				userDocFixture("u-1", "alice", "a@x.com", created),
				userDocFixture("u-2", "bob", "b@x.com", created.Add(time.Minute)),
			),
		)

		users, total, err := s.List(ctx, models.UserFilter{FirstName: "alice"})
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, total)
		require.Len(mt, users, 2)
		assert.Equal(mt, "bob", users[1].Username)
	})

	mt.Run("purge expired reset tokens", func(mt *mtest.T) {
		s := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 3},
		))

		n, err := s.PurgeExpiredResetTokens(ctx, time.Now())
		require.NoError(mt, err)
		assert.EqualValues(mt, 3, n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		_, err = started.Command.LookupErr("updates", "0", "u", "$set", "updated_at")
		assert.NoError(mt, err, "purge must bump updated_at")
		_, err = started.Command.LookupErr("updates", "0", "u", "$unset", "password_reset_token")
		assert.NoError(mt, err)
	})
}
