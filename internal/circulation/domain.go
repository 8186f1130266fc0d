package circulation

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusOnLoan   Status = "ON_LOAN"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnLoan, StatusReturned, StatusOverdue:
		return true
	}
	return false
}

// Active reports whether the book is still out with the member.
func (s Status) Active() bool {
	return s == StatusOnLoan || s == StatusOverdue
}

// ParseStatus accepts the canonical upper-case names.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown loan status %q", s)
	}
	return status, nil
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	t time.Time
}

// DateOf returns the calendar date of t as read in t's own location.
// Convert t first to pick the zone.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }
func (d Date) Time() time.Time { return d.t }
func (d Date) String() string { return d.t.Format(dateLayout) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan reads DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Loan is one lending event. ActualReturn is set iff Status is RETURNED.
type Loan struct {
	ID             string `json:"id" db:"id"`
	MemberID       string `json:"member_id" db:"member_id"`
	BookID         int64  `json:"book_id" db:"book_id"`
	StartDate      Date   `json:"start_date" db:"start_date"`
	ExpectedReturn Date   `json:"expected_return_date" db:"expected_return_date"`
	ActualReturn   *Date  `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Status         Status `json:"status" db:"status"`
	Version        int    `json:"version" db:"version"`
}

// LoanView is a loan joined with display fields from the catalog and the
// member directory. The extra fields are empty when a lookup failed.
type LoanView struct {
	Loan
	BookTitle       string `json:"book_title"`
	MemberFirstName string `json:"member_first_name"`
	MemberLastName  string `json:"member_last_name"`
}

// CreateLoanRequest is the input for a new loan. StartDate defaults to today.
type CreateLoanRequest struct {
	MemberID       string `json:"member_id"`
	BookID         int64  `json:"book_id"`
	StartDate      *Date  `json:"start_date,omitempty"`
	ExpectedReturn *Date  `json:"expected_return_date"`
}

func (r CreateLoanRequest) bookRef() string {
	return strconv.FormatInt(r.BookID, 10)
}
