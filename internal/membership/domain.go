package membership

import (
	"errors"
	"time"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrDuplicateEmail     = errors.New("a member with this email already exists")
	ErrInvalidMember      = errors.New("invalid member")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Member represents a library member. RegisteredAt never changes after registration.
type Member struct {
	ID           string    `json:"id" bson:"_id"`
	FirstName    string    `json:"first_name" bson:"first_name"`
	LastName     string    `json:"last_name" bson:"last_name"`
	Email        string    `json:"email" bson:"email"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

// Credential represents a member's login credentials.
type Credential struct {
	PasswordHash string `bson:"password_hash"`
	Salt         string `bson:"salt"`
}

// RegisterRequest is the input for a new registration.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Profile holds the mutable member fields.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

const minPasswordLength = 8

func (p Profile) validate() error {
	switch {
	case p.FirstName == "" || p.LastName == "":
		return errors.Join(ErrInvalidMember, errors.New("first and last name are required"))
	case p.Email == "":
		return errors.Join(ErrInvalidMember, errors.New("email is required"))
	}
	return nil
}

func (r RegisterRequest) profile() Profile {
	return Profile{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}
}
