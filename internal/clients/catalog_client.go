package clients

import (
	"context"
	"fmt"
	"net/http"

	"libralend/internal/catalog"
)

// CatalogClient talks to the catalog service.
type CatalogClient struct {
	base
}

func NewCatalogClient(baseURL string, opts ...Option) *CatalogClient {
	return &CatalogClient{base: newBase("catalog", baseURL, opts)}
}

func (c *CatalogClient) GetBook(ctx context.Context, id int64) (*catalog.Book, error) {
	resp, err := c.do(ctx, "GetBook", http.MethodGet, fmt.Sprintf("/books/%d", id), nil)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, catalog.ErrBookNotFound)
	default:
		return nil, unexpected(resp.status)
	}

	var book catalog.Book
	if err := resp.decode(&book); err != nil {
		return nil, err
	}
	return &book, nil
}

// SetAvailability writes the availability flag. With expected set, the catalog
// only applies the write if the current flag matches.
func (c *CatalogClient) SetAvailability(ctx context.Context, id int64, available bool, expected *bool) (*catalog.Book, error) {
	update := catalog.AvailabilityUpdate{Available: available, Expected: expected}

	resp, err := c.do(ctx, "SetAvailability", http.MethodPut, fmt.Sprintf("/books/%d/availability", id), update)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, catalog.ErrBookNotFound)
	case http.StatusPreconditionFailed:
		return nil, fmt.Errorf("%w: %w", ErrPreconditionFailed, catalog.ErrAvailabilityMismatch)
	default:
		return nil, unexpected(resp.status)
	}

	var book catalog.Book
	if err := resp.decode(&book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *CatalogClient) ListBooks(ctx context.Context) ([]*catalog.Book, error) {
	resp, err := c.do(ctx, "ListBooks", http.MethodGet, "/books", nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, unexpected(resp.status)
	}

	var books []*catalog.Book
	if err := resp.decode(&books); err != nil {
		return nil, err
	}
	return books, nil
}
