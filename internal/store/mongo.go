package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// UsersCollection is the collection MongoStore reads and writes.
const UsersCollection = "users"

type userDoc struct {
	ID                     string          `bson:"_id"`
	Username               string          `bson:"username"`
	Email                  string          `bson:"email"`
	PasswordHash           string          `bson:"password_hash"`
	FirstName              string          `bson:"first_name,omitempty"`
	LastName               string          `bson:"last_name,omitempty"`
	Age                    *int            `bson:"age,omitempty"`
	Gender                 string          `bson:"gender,omitempty"`
	Phone                  string          `bson:"phone,omitempty"`
	DateOfBirth            *time.Time      `bson:"date_of_birth,omitempty"`
	Address                *models.Address `bson:"address,omitempty"`
	Bio                    string          `bson:"bio,omitempty"`
	Avatar                 string          `bson:"avatar,omitempty"`
	Website                string          `bson:"website,omitempty"`
	Role                   string          `bson:"role"`
	IsActive               bool            `bson:"is_active"`
	EmailVerified          bool            `bson:"email_verified"`
	CreatedAt              time.Time       `bson:"created_at"`
	UpdatedAt              time.Time       `bson:"updated_at"`
	LastLogin              *time.Time      `bson:"last_login,omitempty"`
	PasswordResetToken     *string         `bson:"password_reset_token,omitempty"`
	PasswordResetExpires   *time.Time      `bson:"password_reset_expires,omitempty"`
	EmailVerificationToken *string         `bson:"email_verification_token,omitempty"`
}

// MongoStore keeps users as documents. Uniqueness is enforced by the
// username_1 and email_1 unique indexes created in EnsureIndexes.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "password_reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "email_verification_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := mongoNow()
	user.CreatedAt = now
	user.UpdatedAt = now
	truncateTimes(&user)

	if _, err := s.coll.InsertOne(ctx, toDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, duplicateField(err)
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string, scope Scope) (models.User, error) {
	filter := bson.M{"_id": id}
	if scope == ActiveOnly {
		filter["is_active"] = true
	}
	return s.findOne(ctx, filter)
}

func (s *MongoStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findOne(ctx, bson.M{"username": username, "is_active": true})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": email, "is_active": true})
}

func (s *MongoStore) FindByResetToken(ctx context.Context, digest string) (models.User, error) {
	return s.findOne(ctx, bson.M{"password_reset_token": digest})
}

func (s *MongoStore) FindByVerificationToken(ctx context.Context, digest string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email_verification_token": digest})
}

func (s *MongoStore) Update(ctx context.Context, user models.User) (models.User, error) {
	user.UpdatedAt = mongoNow()
	truncateTimes(&user)

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, toDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, duplicateField(err)
		}
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if !filter.Empty() {
		var or []bson.M
		if filter.FirstName != "" {
			or = append(or, bson.M{"first_name": primitive.Regex{
				Pattern: "^" + regexp.QuoteMeta(filter.FirstName) + "$",
				Options: "i",
			}})
		}
		if filter.Gender != "" {
			or = append(or, bson.M{"gender": filter.Gender})
		}
		if filter.Age != nil {
			or = append(or, bson.M{"age": *filter.Age})
		}
		if filter.Email != "" {
			or = append(or, bson.M{"email": filter.Email})
		}
		query["$or"] = or
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(NormalizeLimit(filter.Limit)))

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, fromDoc(d))
	}
	return users, total, nil
}

func (s *MongoStore) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"password_reset_expires": bson.M{"$lt": now}},
		bson.M{
			"$set":   bson.M{"updated_at": mongoNow()},
			"$unset": bson.M{"password_reset_token": "", "password_reset_expires": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return fromDoc(doc), nil
}

// duplicateField maps an E11000 error to the unique index that fired.
func duplicateField(err error) error {
	if strings.Contains(err.Error(), "username_1") {
		return &ConflictError{Field: FieldUsername}
	}
	return &ConflictError{Field: FieldEmail}
}

// mongoNow truncates to the millisecond precision BSON dates keep.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// truncateTimes drops sub-millisecond precision, which BSON dates cannot
// hold, so the returned record matches later reads.
func truncateTimes(u *models.User) {
	u.CreatedAt = u.CreatedAt.Truncate(time.Millisecond)
	u.UpdatedAt = u.UpdatedAt.Truncate(time.Millisecond)
	for _, t := range []**time.Time{&u.LastLogin, &u.PasswordResetExpires, &u.Profile.DateOfBirth} {
		if *t != nil {
			v := (*t).UTC().Truncate(time.Millisecond)
			*t = &v
		}
	}
}

func toDoc(u models.User) userDoc {
	return userDoc{
		ID:                     u.ID,
		Username:               u.Username,
		Email:                  u.Email,
		PasswordHash:           u.PasswordHash,
		FirstName:              u.Profile.FirstName,
		LastName:               u.Profile.LastName,
		Age:                    u.Profile.Age,
		Gender:                 u.Profile.Gender,
		Phone:                  u.Profile.Phone,
		DateOfBirth:            u.Profile.DateOfBirth,
		Address:                u.Profile.Address,
		Bio:                    u.Profile.Bio,
		Avatar:                 u.Profile.Avatar,
		Website:                u.Profile.Website,
		Role:                   string(u.Role),
		IsActive:               u.IsActive,
		EmailVerified:          u.EmailVerified,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
		LastLogin:              u.LastLogin,
		PasswordResetToken:     u.PasswordResetToken,
		PasswordResetExpires:   u.PasswordResetExpires,
		EmailVerificationToken: u.EmailVerificationToken,
	}
}

func fromDoc(d userDoc) models.User {
	return models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Profile: models.Profile{
			FirstName:   d.FirstName,
			LastName:    d.LastName,
			Age:         d.Age,
			Gender:      d.Gender,
			Phone:       d.Phone,
			DateOfBirth: d.DateOfBirth,
			Address:     d.Address,
			Bio:         d.Bio,
			Avatar:      d.Avatar,
			Website:     d.Website,
		},
		Role:                   models.Role(d.Role),
		IsActive:               d.IsActive,
		EmailVerified:          d.EmailVerified,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		LastLogin:              d.LastLogin,
		PasswordResetToken:     d.PasswordResetToken,
		PasswordResetExpires:   d.PasswordResetExpires,
		EmailVerificationToken: d.EmailVerificationToken,
	}
}
