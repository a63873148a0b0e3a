package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Genders accepted for a profile. Empty means unspecified.
var Genders = []string{"male", "female", "other", "prefer_not_to_say"}

type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zip_code,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

// Profile holds the optional, user-editable fields of an account.
type Profile struct {
	FirstName   string
	LastName    string
	Age         *int
	Gender      string
	Phone       string
	DateOfBirth *time.Time
	Address     *Address
	Bio         string
	Avatar      string
	Website     string
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	FirstName   *string
	LastName    *string
	Age         *int
	Gender      *string
	Phone       *string
	DateOfBirth *time.Time
	Address     *Address
	Bio         *string
	Avatar      *string
	Website     *string
}

// Apply returns a copy of p with the patch merged in.
func (pp ProfilePatch) Apply(p Profile) Profile {
	if pp.FirstName != nil {
		p.FirstName = *pp.FirstName
	}
	if pp.LastName != nil {
		p.LastName = *pp.LastName
	}
	if pp.Age != nil {
		age := *pp.Age
		p.Age = &age
	}
	if pp.Gender != nil {
		p.Gender = *pp.Gender
	}
	if pp.Phone != nil {
		p.Phone = *pp.Phone
	}
	if pp.DateOfBirth != nil {
		dob := *pp.DateOfBirth
		p.DateOfBirth = &dob
	}
	if pp.Address != nil {
		addr := *pp.Address
		p.Address = &addr
	}
	if pp.Bio != nil {
		p.Bio = *pp.Bio
	}
	if pp.Avatar != nil {
		p.Avatar = *pp.Avatar
	}
	if pp.Website != nil {
		p.Website = *pp.Website
	}
	return p
}

// User is an account record. It is handled as a value: the service copies it,
// changes the copy and hands the copy to the store's Update.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Profile      Profile
	Role         Role

	IsActive      bool
	EmailVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time

	// Single-use token digests. Nil once consumed or expired.
	PasswordResetToken     *string
	PasswordResetExpires   *time.Time
	EmailVerificationToken *string
}

// UserFilter selects users for the admin directory. Set fields are OR-ed; an
// empty filter matches everyone.
type UserFilter struct {
	FirstName string
	Gender    string
	Age       *int
	Email     string
	Limit     int
	Offset    int
}

func (f UserFilter) Empty() bool {
	return f.FirstName == "" && f.Gender == "" && f.Age == nil && f.Email == ""
}
