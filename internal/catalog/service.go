package catalog

import "context"

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, in BookInput) (*Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	ListBooks(ctx context.Context) ([]*Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error)
	RemoveBook(ctx context.Context, id int64) error
	Search(ctx context.Context, q SearchQuery) ([]*Book, error)
	SetAvailability(ctx context.Context, id int64, update AvailabilityUpdate) (*Book, error)
}
