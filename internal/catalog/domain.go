package catalog

import (
	"errors"
	"time"
)

var (
	ErrBookNotFound         = errors.New("book not found")
	ErrDuplicateISBN        = errors.New("a book with this ISBN already exists")
	ErrAvailabilityMismatch = errors.New("book availability does not match the expected value")
	ErrInvalidBook          = errors.New("invalid book")
)

// Book is a catalog record. Available is the only field lending depends on.
type Book struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Genre     string    `json:"genre,omitempty" db:"genre"`
	ISBN      string    `json:"isbn" db:"isbn"`
	Available bool      `json:"available" db:"available"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookInput carries the descriptive fields for create and update.
type BookInput struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
	ISBN   string `json:"isbn"`
}

func (in BookInput) validate() error {
	switch {
	case in.Title == "":
		return errors.Join(ErrInvalidBook, errors.New("title is required"))
	case in.Author == "":
		return errors.Join(ErrInvalidBook, errors.New("author is required"))
	case in.ISBN == "":
		return errors.Join(ErrInvalidBook, errors.New("isbn is required"))
	}
	return nil
}

// SearchQuery matches partially and case-insensitively; empty fields match everything.
type SearchQuery struct {
	Title  string
	Author string
	Genre  string
}

// AvailabilityUpdate sets the availability flag.
// When Expected is set the write only applies if the current flag equals it.
type AvailabilityUpdate struct {
	Available bool  `json:"available"`
	Expected  *bool `json:"expected,omitempty"`
}
