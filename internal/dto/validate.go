package dto

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
)

// DateLayout is the wire format of dateOfBirth.
const DateLayout = "2006-01-02"

// Password bounds count bytes, not characters, so a valid password always
// fits bcrypt's 72-byte input.
const (
	PasswordMinLen = 6
	PasswordMaxLen = 50
	MinAge         = 18
	MaxAge         = 120
	BioMaxLen      = 500
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed its constraints.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message
}

type checker struct {
	fields []FieldError
}

func (c *checker) add(field, format string, args ...any) {
	c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.add(field, "%s should not be empty", field)
		return false
	}
	return true
}

func (c *checker) password(field, value string) {
	if !c.required(field, value) {
		return
	}
	if n := len(value); n < PasswordMinLen || n > PasswordMaxLen {
		c.add(field, "%s must be between %d and %d characters", field, PasswordMinLen, PasswordMaxLen)
	}
}

func (c *checker) email(field, value string) {
	if !c.required(field, value) {
		return
	}
	if !IsEmail(value) {
		c.add(field, "%s must be an email", field)
	}
}

func (c *checker) age(age *int) {
	if age != nil && (*age < MinAge || *age > MaxAge) {
		c.add("age", "age must be between %d and %d", MinAge, MaxAge)
	}
}

func (c *checker) gender(gender string) {
	if gender == "" {
		return
	}
	for _, g := range models.Genders {
		if g == gender {
			return
		}
	}
	c.add("gender", "gender must be one of: %s", strings.Join(models.Genders, ", "))
}

func (c *checker) bio(bio string) {
	if len(bio) > BioMaxLen {
		c.add("bio", "bio must be shorter than or equal to %d characters", BioMaxLen)
	}
}

func (c *checker) date(field, value string) *time.Time {
	if value == "" {
		return nil
	}
	d, err := ParseDate(value)
	if err != nil {
		c.add(field, "%s must be a valid ISO 8601 date string", field)
		return nil
	}
	return &d
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields}
}

// IsEmail accepts a bare addr-spec; display names and angle brackets are rejected.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp and returns
// the UTC date.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Validate checks the signup constraints and returns the initial profile.
func (r SignUpRequest) Validate() (models.Profile, error) {
	var c checker
	c.required("username", r.Username)
	c.password("password", r.Password)
	c.email("email", r.Email)
	c.required("firstName", r.FirstName)
	c.age(r.Age)
	c.gender(r.Gender)
	c.bio(r.Bio)
	dob := c.date("dateOfBirth", r.DateOfBirth)
	if err := c.err(); err != nil {
		return models.Profile{}, err
	}

	return models.Profile{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Age:         r.Age,
		Gender:      r.Gender,
		Phone:       r.Phone,
		DateOfBirth: dob,
		Address:     r.Address,
		Bio:         r.Bio,
		Avatar:      r.Avatar,
		Website:     r.Website,
	}, nil
}

func (r LoginRequest) Validate() error {
	var c checker
	c.required("username", r.Username)
	c.required("password", r.Password)
	return c.err()
}

func (r UpdateProfileRequest) Validate() (models.ProfilePatch, error) {
	var c checker
	if r.FirstName != nil {
		c.required("firstName", *r.FirstName)
	}
	c.age(r.Age)
	if r.Gender != nil {
		c.gender(*r.Gender)
	}
	if r.Bio != nil {
		c.bio(*r.Bio)
	}
	var dob *time.Time
	if r.DateOfBirth != nil {
		if *r.DateOfBirth == "" {
			c.add("dateOfBirth", "dateOfBirth must be a valid ISO 8601 date string")
		} else {
			dob = c.date("dateOfBirth", *r.DateOfBirth)
		}
	}
	if err := c.err(); err != nil {
		return models.ProfilePatch{}, err
	}

	return models.ProfilePatch{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Age:         r.Age,
		Gender:      r.Gender,
		Phone:       r.Phone,
		DateOfBirth: dob,
		Address:     r.Address,
		Bio:         r.Bio,
		Avatar:      r.Avatar,
		Website:     r.Website,
	}, nil
}

func (r ChangePasswordRequest) Validate() error {
	var c checker
	c.required("currentPassword", r.CurrentPassword)
	c.password("newPassword", r.NewPassword)
	return c.err()
}

func (r ChangeEmailRequest) Validate() error {
	var c checker
	c.email("newEmail", r.NewEmail)
	c.required("password", r.Password)
	return c.err()
}

func (r ForgotPasswordRequest) Validate() error {
	var c checker
	c.email("email", r.Email)
	return c.err()
}

func (r ResetPasswordRequest) Validate() error {
	var c checker
	c.required("token", r.Token)
	c.password("newPassword", r.NewPassword)
	return c.err()
}

func (q ListUsersQuery) Filter() (models.UserFilter, error) {
	var c checker
	f := models.UserFilter{
		FirstName: q.FirstName,
		Gender:    q.Gender,
		Email:     q.Email,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Age != "" {
		age, err := strconv.Atoi(q.Age)
		if err != nil {
			c.add("age", "age must be an integer number")
		} else {
			f.Age = &age
		}
	}
	if q.Limit < 0 {
		c.add("limit", "limit must not be negative")
	}
	if q.Offset < 0 {
		c.add("offset", "offset must not be negative")
	}
	if err := c.err(); err != nil {
		return models.UserFilter{}, err
	}
	return f, nil
}
