package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps records in a map guarded by a mutex. Each instance owns
// its own map.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
		now:   time.Now,
	}
}

func (s *MemoryStore) Insert(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(user); err != nil {
		return models.User{}, err
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string, scope Scope) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || (scope == ActiveOnly && !u.IsActive) {
		return models.User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	return s.findOne(func(u models.User) bool { return u.IsActive && u.Username == username })
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.findOne(func(u models.User) bool { return u.IsActive && u.Email == email })
}

func (s *MemoryStore) FindByResetToken(_ context.Context, digest string) (models.User, error) {
	return s.findOne(func(u models.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == digest
	})
}

func (s *MemoryStore) FindByVerificationToken(_ context.Context, digest string) (models.User, error) {
	return s.findOne(func(u models.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == digest
	})
}

func (s *MemoryStore) Update(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return models.User{}, err
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now().UTC()
	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	s.mu.RLock()
	matched := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if matchesFilter(u, filter) {
			matched = append(matched, cloneUser(u))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	offset := filter.Offset
	if offset < 0 || offset > len(matched) {
		offset = len(matched)
	}
	end := offset + NormalizeLimit(filter.Limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	updated := s.now().UTC()
	for id, u := range s.users {
		if u.PasswordResetExpires != nil && u.PasswordResetExpires.Before(now) {
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
			u.UpdatedAt = updated
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// checkUnique must run under the write lock.
func (s *MemoryStore) checkUnique(user models.User) error {
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return &ConflictError{Field: FieldUsername}
		}
		if u.Email == user.Email {
			return &ConflictError{Field: FieldEmail}
		}
	}
	return nil
}

func (s *MemoryStore) findOne(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return models.User{}, ErrNotFound
}

func matchesFilter(u models.User, f models.UserFilter) bool {
	if f.Empty() {
		return true
	}
	if f.FirstName != "" && strings.EqualFold(f.FirstName, u.Profile.FirstName) {
		return true
	}
	if f.Gender != "" && f.Gender == u.Profile.Gender {
		return true
	}
	if f.Age != nil && u.Profile.Age != nil && *f.Age == *u.Profile.Age {
		return true
	}
	return f.Email != "" && f.Email == u.Email
}

// cloneUser copies pointer fields so callers never share memory with the map.
func cloneUser(u models.User) models.User {
	u.Profile.Age = clonePtr(u.Profile.Age)
	u.Profile.DateOfBirth = clonePtr(u.Profile.DateOfBirth)
	u.Profile.Address = clonePtr(u.Profile.Address)
	u.LastLogin = clonePtr(u.LastLogin)
	u.PasswordResetToken = clonePtr(u.PasswordResetToken)
	u.PasswordResetExpires = clonePtr(u.PasswordResetExpires)
	u.EmailVerificationToken = clonePtr(u.EmailVerificationToken)
	return u
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
