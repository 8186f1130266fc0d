package circulation

import (
	"context"
	"errors"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrConcurrencyConflict = errors.New("loan was modified concurrently")
)

// Repository stores loans. List methods return loans in insertion order.
type Repository interface {
	// Insert stores a new loan at version 1.
	Insert(ctx context.Context, loan *Loan) error
	// Update writes loan if the stored version still equals loan.Version,
	// then bumps loan.Version. Otherwise it returns ErrConcurrencyConflict.
	Update(ctx context.Context, loan *Loan) error
	Get(ctx context.Context, id string) (*Loan, error)
	List(ctx context.Context) ([]*Loan, error)
	ListByMember(ctx context.Context, memberID string) ([]*Loan, error)
	ListByBookAndStatus(ctx context.Context, bookID int64, status Status) ([]*Loan, error)
	ListByStatus(ctx context.Context, status Status) ([]*Loan, error)
}
