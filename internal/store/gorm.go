package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// userRow is the relational shape of models.User.
type userRow struct {
	ID                     string `gorm:"type:varchar(36);primaryKey"`
	Username               string `gorm:"size:100;not null;uniqueIndex:idx_users_username"`
	Email                  string `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash           string `gorm:"not null"`
	FirstName              string `gorm:"size:100"`
	LastName               string `gorm:"size:100"`
	Age                    *int
	Gender                 string `gorm:"size:20"`
	Phone                  string `gorm:"size:50"`
	DateOfBirth            *time.Time
	Address                datatypes.JSON `gorm:"not null"`
	Bio                    string         `gorm:"size:500"`
	Avatar                 string
	Website                string
	Role                   string `gorm:"size:20;not null"`
	IsActive               bool   `gorm:"not null;index"`
	EmailVerified          bool   `gorm:"not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
	LastLogin              *time.Time
	PasswordResetToken     *string `gorm:"size:64;index"`
	PasswordResetExpires   *time.Time
	EmailVerificationToken *string `gorm:"size:64;index"`
}

func (userRow) TableName() string { return "users" }

// GormStore keeps users in a relational database. Uniqueness is enforced by
// the idx_users_username and idx_users_email unique indexes.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the users table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&userRow{})
}

func (s *GormStore) Insert(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	row, err := toRow(user)
	if err != nil {
		return models.User{}, err
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return models.User{}, s.conflict(ctx, row)
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return fromRow(row)
}

func (s *GormStore) FindByID(ctx context.Context, id string, scope Scope) (models.User, error) {
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if scope == ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return s.first(q)
}

func (s *GormStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true))
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true))
}

func (s *GormStore) FindByResetToken(ctx context.Context, digest string) (models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("password_reset_token = ?", digest))
}

func (s *GormStore) FindByVerificationToken(ctx context.Context, digest string) (models.User, error) {
	return s.first(s.db.WithContext(ctx).Where("email_verification_token = ?", digest))
}

func (s *GormStore) Update(ctx context.Context, user models.User) (models.User, error) {
	row, err := toRow(user)
	if err != nil {
		return models.User{}, err
	}
	row.UpdatedAt = time.Now().UTC()

	result := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", row.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&row)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return models.User{}, s.conflict(ctx, row)
		}
		return models.User{}, fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.User{}, ErrNotFound
	}
	return s.FindByID(ctx, row.ID, AnyState)
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&userRow{})
	if !filter.Empty() {
		var clauses []string
		var args []interface{}
		if filter.FirstName != "" {
			clauses = append(clauses, "LOWER(first_name) = LOWER(?)")
			args = append(args, filter.FirstName)
		}
		if filter.Gender != "" {
			clauses = append(clauses, "gender = ?")
			args = append(args, filter.Gender)
		}
		if filter.Age != nil {
			clauses = append(clauses, "age = ?")
			args = append(args, *filter.Age)
		}
		if filter.Email != "" {
			clauses = append(clauses, "email = ?")
			args = append(args, filter.Email)
		}
		q = q.Where(strings.Join(clauses, " OR "), args...)
	}
	// Shared by the count and the page query below.
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var rows []userRow
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if err := q.Order("created_at, id").Limit(NormalizeLimit(filter.Limit)).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for _, r := range rows {
		u, err := fromRow(r)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, nil
}

func (s *GormStore) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("password_reset_expires < ?", now).
		Updates(map[string]interface{}{
			"password_reset_token":   nil,
			"password_reset_expires": nil,
			"updated_at":             time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) first(q *gorm.DB) (models.User, error) {
	var row userRow
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return fromRow(row)
}

// conflict works out which unique index rejected row.
func (s *GormStore) conflict(ctx context.Context, row userRow) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Where("username = ? AND id <> ?", row.Username, row.ID).
		Count(&n).Error
	if err == nil && n > 0 {
		return &ConflictError{Field: FieldUsername}
	}
	return &ConflictError{Field: FieldEmail}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func toRow(u models.User) (userRow, error) {
	address := datatypes.JSON("null")
	if u.Profile.Address != nil {
		b, err := json.Marshal(u.Profile.Address)
		if err != nil {
			return userRow{}, fmt.Errorf("failed to encode address: %w", err)
		}
		address = datatypes.JSON(b)
	}

	return userRow{
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
		Address:                address,
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
	}, nil
}

func fromRow(r userRow) (models.User, error) {
	var address *models.Address
	if len(r.Address) > 0 && string(r.Address) != "null" {
		address = &models.Address{}
		if err := json.Unmarshal(r.Address, address); err != nil {
			return models.User{}, fmt.Errorf("failed to decode address: %w", err)
		}
	}

	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Profile: models.Profile{
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Age:         r.Age,
			Gender:      r.Gender,
			Phone:       r.Phone,
			DateOfBirth: r.DateOfBirth,
			Address:     address,
			Bio:         r.Bio,
			Avatar:      r.Avatar,
			Website:     r.Website,
		},
		Role:                   models.Role(r.Role),
		IsActive:               r.IsActive,
		EmailVerified:          r.EmailVerified,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
		LastLogin:              r.LastLogin,
		PasswordResetToken:     r.PasswordResetToken,
		PasswordResetExpires:   r.PasswordResetExpires,
		EmailVerificationToken: r.EmailVerificationToken,
	}, nil
}
