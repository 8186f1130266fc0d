package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestPool connects to CATALOG_TEST_DATABASE_URL and skips the test when it is unset or unreachable.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("CATALOG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CATALOG_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("could not connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func TestService_SetAvailabilityIsConditional(t *testing.T) {
	pool := setupTestPool(t)
	svc := NewService(pool)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, BookInput{Title: "Emma", Author: "Jane Austen", ISBN: uuid.NewString()})
	require.NoError(t, err)
	require.True(t, book.Available)

	expected := true
	updated, err := svc.SetAvailability(ctx, book.ID, AvailabilityUpdate{Available: false, Expected: &expected})
	require.NoError(t, err)
	assert.False(t, updated.Available)

	_, err = svc.SetAvailability(ctx, book.ID, AvailabilityUpdate{Available: false, Expected: &expected})
	assert.ErrorIs(t, err, ErrAvailabilityMismatch)

	_, err = svc.SetAvailability(ctx, -1, AvailabilityUpdate{Available: true})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_DuplicateISBN(t *testing.T) {
	pool := setupTestPool(t)
	svc := NewService(pool)
	ctx := context.Background()
	isbn := uuid.NewString()

	_, err := svc.AddBook(ctx, BookInput{Title: "Emma", Author: "Jane Austen", ISBN: isbn})
	require.NoError(t, err)

	_, err = svc.AddBook(ctx, BookInput{Title: "Emma (again)", Author: "Jane Austen", ISBN: isbn})
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestService_Search(t *testing.T) {
	pool := setupTestPool(t)
	svc := NewService(pool)
	ctx := context.Background()
	genre := "genre-" + uuid.NewString()

	_, err := svc.AddBook(ctx, BookInput{Title: "The Hobbit", Author: "J. R. R. Tolkien", Genre: genre, ISBN: uuid.NewString()})
	require.NoError(t, err)

	books, err := svc.Search(ctx, SearchQuery{Title: "hobb", Genre: genre})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Hobbit", books[0].Title)
}
