package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const uniqueViolation = "23505"

// Schema creates the books table.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	genre      TEXT NOT NULL DEFAULT '',
	isbn       TEXT NOT NULL UNIQUE,
	available  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const bookColumns = `id, title, author, genre, isbn, available, created_at`

// service implements the Service interface.
type service struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(pool *pgxpool.Pool) Service {
	return &service{
		pool:   pool,
		tracer: otel.Tracer("libralend/catalog"),
	}
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}

// AddBook creates a new available book.
func (s *service) AddBook(ctx context.Context, in BookInput) (*Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		INSERT INTO books (title, author, genre, isbn)
		VALUES ($1, $2, $3, $4)
		RETURNING `+bookColumns,
		in.Title, in.Author, in.Genre, in.ISBN,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	book, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Book])
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id int64) (*Book, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query book: %w", err)
	}

	book, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return book, nil
}

func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Book])
}

// UpdateBook replaces the descriptive fields. Availability and creation time are kept.
func (s *service) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE books
		SET title = $2, author = $3, genre = $4, isbn = $5
		WHERE id = $1
		RETURNING `+bookColumns,
		id, in.Title, in.Author, in.Genre, in.ISBN,
	)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	book, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Book])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrBookNotFound
	case isUniqueViolation(err):
		return nil, ErrDuplicateISBN
	case err != nil:
		return nil, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

func (s *service) RemoveBook(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Search finds books by partial title, author and genre.
func (s *service) Search(ctx context.Context, q SearchQuery) ([]*Book, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		AND ($2 = '' OR author ILIKE '%' || $2 || '%')
		AND ($3 = '' OR genre ILIKE '%' || $3 || '%')
		ORDER BY id
	`, q.Title, q.Author, q.Genre)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Book])
}

// SetAvailability writes the availability flag, conditionally when update.Expected is set.
// The condition is evaluated in the same statement as the write.
func (s *service) SetAvailability(ctx context.Context, id int64, update AvailabilityUpdate) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.set_availability",
		trace.WithAttributes(
			attribute.Int64("book.id", id),
			attribute.Bool("available", update.Available),
			attribute.Bool("conditional", update.Expected != nil),
		),
	)
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		UPDATE books
		SET available = $2
		WHERE id = $1 AND ($3::boolean IS NULL OR available = $3)
		RETURNING `+bookColumns,
		id, update.Available, update.Expected,
	)
	if err != nil {
		return nil, fmt.Errorf("update availability: %w", err)
	}

	book, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Book])
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update availability: %w", err)
	}

	// Nothing matched: either the book is gone or the condition failed.
	if _, getErr := s.GetBook(ctx, id); getErr != nil {
		return nil, getErr
	}
	span.SetAttributes(attribute.Bool("conflict.detected", true))
	return nil, ErrAvailabilityMismatch
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
