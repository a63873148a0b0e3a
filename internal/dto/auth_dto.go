package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
)

type SignUpRequest struct {
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName,omitempty"`
	Age         *int            `json:"age,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	Address     *models.Address `json:"address,omitempty"`
	Bio         string          `json:"bio,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Website     string          `json:"website,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is a partial update; omitted fields keep their value.
type UpdateProfileRequest struct {
	FirstName   *string         `json:"firstName,omitempty"`
	LastName    *string         `json:"lastName,omitempty"`
	Age         *int            `json:"age,omitempty"`
	Gender      *string         `json:"gender,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	DateOfBirth *string         `json:"dateOfBirth,omitempty"`
	Address     *models.Address `json:"address,omitempty"`
	Bio         *string         `json:"bio,omitempty"`
	Avatar      *string         `json:"avatar,omitempty"`
	Website     *string         `json:"website,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ChangeEmailRequest struct {
	NewEmail string `json:"newEmail"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ListUsersQuery is the admin directory query string. Age stays a string so a
// bad value surfaces as a validation error instead of a parser error.
type ListUsersQuery struct {
	FirstName string `query:"firstName"`
	Gender    string `query:"gender"`
	Age       string `query:"age"`
	Email     string `query:"email"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserMessageResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type UserResponse struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	FirstName     string          `json:"firstName,omitempty"`
	LastName      string          `json:"lastName,omitempty"`
	Age           *int            `json:"age,omitempty"`
	Gender        string          `json:"gender,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	DateOfBirth   string          `json:"dateOfBirth,omitempty"`
	Address       *models.Address `json:"address,omitempty"`
	Bio           string          `json:"bio,omitempty"`
	Avatar        string          `json:"avatar,omitempty"`
	Website       string          `json:"website,omitempty"`
	Role          models.Role     `json:"role"`
	IsActive      bool            `json:"isActive"`
	EmailVerified bool            `json:"emailVerified"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	LastLogin     *time.Time      `json:"lastLogin,omitempty"`
}

// NewUserResponse renders a user without its credential or token digests.
func NewUserResponse(u models.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.Profile.FirstName,
		LastName:      u.Profile.LastName,
		Age:           u.Profile.Age,
		Gender:        u.Profile.Gender,
		Phone:         u.Profile.Phone,
		Address:       u.Profile.Address,
		Bio:           u.Profile.Bio,
		Avatar:        u.Profile.Avatar,
		Website:       u.Profile.Website,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastLogin:     u.LastLogin,
	}
	if u.Profile.DateOfBirth != nil {
		resp.DateOfBirth = u.Profile.DateOfBirth.Format(DateLayout)
	}
	return resp
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func NewUserListResponse(users []models.User, total int64, filter models.UserFilter) UserListResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return UserListResponse{Users: out, Total: total, Limit: filter.Limit, Offset: filter.Offset}
}

type ErrorResponse struct {
	Error      bool         `json:"error"`
	Message    string       `json:"message"`
	StatusCode int          `json:"statusCode"`
	Path       string       `json:"path,omitempty"`
	Timestamp  string       `json:"timestamp"`
	Details    []FieldError `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewErrorResponse(status int, msg, path string) ErrorResponse {
	return ErrorResponse{
		Error:      true,
		Message:    msg,
		StatusCode: status,
		Path:       path,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
