package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
)

// Notifier delivers single-use tokens out of band.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendVerification(ctx context.Context, to, token string) error
}

// ForgotPasswordMessage is returned whether or not the email is registered.
const ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent"

// AccountService runs the account lifecycle: signup, login, profile, password
// and email changes, reset and verification tokens, (de)activation, deletion.
//
// Every mutation loads the record, changes a copy and writes the whole record
// back. Concurrent mutations of one user are last-writer-wins.
type AccountService struct {
	users    store.UserStore
	hasher   auth.Hasher
	issuer   *auth.TokenIssuer
	notifier Notifier
	resetTTL time.Duration
	now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAccountService(users store.UserStore, hasher auth.Hasher, issuer *auth.TokenIssuer, notifier Notifier, resetTTL time.Duration) *AccountService {
	return &AccountService{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		notifier: notifier,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

func (s *AccountService) SignUp(ctx context.Context, req dto.SignUpRequest) (models.User, error) {
	profile, err := req.Validate()
	if err != nil {
		return models.User{}, WrapValidation(err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	verify, err := auth.IssueSingleUseToken(s.now(), 0)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Insert(ctx, models.User{
		Username:               req.Username,
		Email:                  req.Email,
		PasswordHash:           digest,
		Profile:                profile,
		Role:                   models.RoleUser,
		IsActive:               true,
		EmailVerificationToken: &verify.Hash,
	})
	if err != nil {
		return models.User{}, mapStoreError(err, "failed to create user")
	}

	slog.InfoContext(ctx, "user signed up", "user_id", user.ID, "action", "signup")
	s.sendVerification(ctx, user, verify.Plain)
	return user, nil
}

// Login returns a session token for an active user. Unknown usernames, inactive
// accounts and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, req dto.LoginRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", WrapValidation(err)
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("failed to load user: %w", err)
		}
		// Keep the response time in line with a real comparison.
		_, _ = s.hasher.Verify(req.Password, s.dummy())
		return "", ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		slog.WarnContext(ctx, "login failed", "user_id", user.ID, "action", "login")
		return "", ErrInvalidCredentials
	}

	now := s.now().UTC()
	user.LastLogin = &now
	if user, err = s.users.Update(ctx, user); err != nil {
		return "", mapStoreError(err, "failed to record login")
	}

	token, err := s.issuer.IssueSession(user.ID, user.Username, user.Email, string(user.Role))
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID, store.AnyState)
	if err != nil {
		return models.User{}, mapStoreError(err, "failed to load user")
	}
	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (models.User, error) {
	patch, err := req.Validate()
	if err != nil {
		return models.User{}, WrapValidation(err)
	}

	return s.mutate(ctx, userID, func(u *models.User) error {
		u.Profile = patch.Apply(u.Profile)
		return nil
	})
}

func (s *AccountService) ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return WrapValidation(err)
	}

	_, err := s.mutate(ctx, userID, func(u *models.User) error {
		if err := s.checkPassword(*u, req.CurrentPassword, ErrWrongPassword); err != nil {
			return err
		}
		digest, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u.PasswordHash = digest
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "password changed", "user_id", userID, "action", "change_password")
	}
	return err
}

// ChangeEmail moves the account to a new address, which starts unverified.
func (s *AccountService) ChangeEmail(ctx context.Context, userID string, req dto.ChangeEmailRequest) (models.User, error) {
	if err := req.Validate(); err != nil {
		return models.User{}, WrapValidation(err)
	}

	verify, err := auth.IssueSingleUseToken(s.now(), 0)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.mutate(ctx, userID, func(u *models.User) error {
		if err := s.checkPassword(*u, req.Password, ErrIncorrectPassword); err != nil {
			return err
		}
		u.Email = req.NewEmail
		u.EmailVerified = false
		u.EmailVerificationToken = &verify.Hash
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	slog.InfoContext(ctx, "email changed", "user_id", user.ID, "action", "change_email")
	s.sendVerification(ctx, user, verify.Plain)
	return user, nil
}

// ForgotPassword issues a reset token when the email belongs to an active user.
// The outcome is never reported to the caller; failures are only logged.
func (s *AccountService) ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return WrapValidation(err)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.ErrorContext(ctx, "forgot password lookup failed", "action", "forgot_password", "error", err)
		}
		return nil
	}

	reset, err := auth.IssueSingleUseToken(s.now(), s.resetTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue reset token", "user_id", user.ID, "action", "forgot_password", "error", err)
		return nil
	}
	user.PasswordResetToken = &reset.Hash
	user.PasswordResetExpires = &reset.ExpiresAt
	if _, err := s.users.Update(ctx, user); err != nil {
		slog.ErrorContext(ctx, "failed to store reset token", "user_id", user.ID, "action", "forgot_password", "error", err)
		return nil
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, reset.Plain); err != nil {
		slog.ErrorContext(ctx, "failed to send reset email", "user_id", user.ID, "action", "forgot_password", "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token. An expired token is cleared before the
// request is rejected, so it cannot be retried either way.
func (s *AccountService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return WrapValidation(err)
	}

	user, err := s.users.FindByResetToken(ctx, auth.HashToken(req.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	expired := user.PasswordResetExpires == nil || !s.now().Before(*user.PasswordResetExpires)
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil

	if expired {
		if _, err := s.users.Update(ctx, user); err != nil {
			slog.ErrorContext(ctx, "failed to clear expired reset token", "user_id", user.ID, "action", "reset_password", "error", err)
		}
		return ErrInvalidResetToken
	}

	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = digest
	if _, err := s.users.Update(ctx, user); err != nil {
		return mapStoreError(err, "failed to reset password")
	}

	slog.InfoContext(ctx, "password reset", "user_id", user.ID, "action", "reset_password")
	return nil
}

func (s *AccountService) DeactivateAccount(ctx context.Context, userID string) (models.User, error) {
	return s.setActive(ctx, userID, false)
}

func (s *AccountService) ReactivateAccount(ctx context.Context, userID string) (models.User, error) {
	return s.setActive(ctx, userID, true)
}

func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return mapStoreError(err, "failed to delete user")
	}
	slog.InfoContext(ctx, "account deleted", "user_id", userID, "action", "delete_account")
	return nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerification
	}

	user, err := s.users.FindByVerificationToken(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidVerification
		}
		return fmt.Errorf("failed to load verification token: %w", err)
	}

	user.EmailVerified = true
	user.EmailVerificationToken = nil
	if _, err := s.users.Update(ctx, user); err != nil {
		return mapStoreError(err, "failed to verify email")
	}
	return nil
}

// ResendVerificationEmail replaces any outstanding verification token.
func (s *AccountService) ResendVerificationEmail(ctx context.Context, userID string) error {
	verify, err := auth.IssueSingleUseToken(s.now(), 0)
	if err != nil {
		return err
	}

	user, err := s.mutate(ctx, userID, func(u *models.User) error {
		u.EmailVerificationToken = &verify.Hash
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.notifier.SendVerification(ctx, user.Email, verify.Plain); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *AccountService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.GetProfile(ctx, id)
}

func (s *AccountService) setActive(ctx context.Context, userID string, active bool) (models.User, error) {
	user, err := s.mutate(ctx, userID, func(u *models.User) error {
		u.IsActive = active
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "account state changed", "user_id", userID, "action", "set_active", "active", active)
	}
	return user, err
}

// mutate loads the user, applies fn to a copy and stores the result.
func (s *AccountService) mutate(ctx context.Context, userID string, fn func(u *models.User) error) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID, store.AnyState)
	if err != nil {
		return models.User{}, mapStoreError(err, "failed to load user")
	}
	if err := fn(&user); err != nil {
		return models.User{}, err
	}
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return models.User{}, mapStoreError(err, "failed to update user")
	}
	return updated, nil
}

func (s *AccountService) checkPassword(user models.User, plaintext string, mismatch error) error {
	ok, err := s.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return mismatch
	}
	return nil
}

func (s *AccountService) sendVerification(ctx context.Context, user models.User, token string) {
	if err := s.notifier.SendVerification(ctx, user.Email, token); err != nil {
		slog.WarnContext(ctx, "failed to send verification email", "user_id", user.ID, "error", err)
	}
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("account-backend-timing-placeholder")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func mapStoreError(err error, op string) error {
	var conflict *store.ConflictError
	switch {
	case errors.As(err, &conflict):
		if conflict.Field == store.FieldUsername {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
