package circulation

import (
	"context"

	"libralend/internal/catalog"
	"libralend/internal/membership"
)

// Service defines the interface for the circulation service.
type Service interface {
	CreateLoan(ctx context.Context, req CreateLoanRequest) (*LoanView, error)
	ReturnLoan(ctx context.Context, id string) (*LoanView, error)
	GetLoan(ctx context.Context, id string) (*LoanView, error)
	ListLoans(ctx context.Context) ([]*LoanView, error)
	ListLoansByMember(ctx context.Context, memberID string) ([]*LoanView, error)
	ListLoansByBookAndStatus(ctx context.Context, bookID int64, status Status) ([]*LoanView, error)
	ListLoansByStatus(ctx context.Context, status Status) ([]*LoanView, error)
}

// Catalog is the part of the catalog service lending depends on.
type Catalog interface {
	GetBook(ctx context.Context, id int64) (*catalog.Book, error)
	SetAvailability(ctx context.Context, id int64, available bool, expected *bool) (*catalog.Book, error)
}

// Members is the part of the member directory lending depends on.
type Members interface {
	GetMember(ctx context.Context, id string) (*membership.Member, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
