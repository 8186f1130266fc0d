package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryService keeps books in process. It backs tests and local runs without Postgres.
type memoryService struct {
	mu     sync.RWMutex
	nextID int64
	books  map[int64]Book
}

// NewMemoryService returns an in-memory Service.
func NewMemoryService() Service {
	return &memoryService{books: make(map[int64]Book)}
}

func (s *memoryService) AddBook(_ context.Context, in BookInput) (*Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isbnTaken(in.ISBN, 0) {
		return nil, ErrDuplicateISBN
	}
	s.nextID++
	book := Book{
		ID:        s.nextID,
		Title:     in.Title,
		Author:    in.Author,
		Genre:     in.Genre,
		ISBN:      in.ISBN,
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
	s.books[book.ID] = book
	return &book, nil
}

func (s *memoryService) GetBook(_ context.Context, id int64) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return &book, nil
}

func (s *memoryService) ListBooks(_ context.Context) ([]*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(Book) bool { return true }), nil
}

func (s *memoryService) UpdateBook(_ context.Context, id int64, in BookInput) (*Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	if s.isbnTaken(in.ISBN, id) {
		return nil, ErrDuplicateISBN
	}
	book.Title, book.Author, book.Genre, book.ISBN = in.Title, in.Author, in.Genre, in.ISBN
	s.books[id] = book
	return &book, nil
}

func (s *memoryService) RemoveBook(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *memoryService) Search(_ context.Context, q SearchQuery) ([]*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(func(b Book) bool {
		return containsFold(b.Title, q.Title) && containsFold(b.Author, q.Author) && containsFold(b.Genre, q.Genre)
	}), nil
}

func (s *memoryService) SetAvailability(_ context.Context, id int64, update AvailabilityUpdate) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	if update.Expected != nil && book.Available != *update.Expected {
		return nil, ErrAvailabilityMismatch
	}
	book.Available = update.Available
	s.books[id] = book
	return &book, nil
}

func (s *memoryService) isbnTaken(isbn string, except int64) bool {
	for id, b := range s.books {
		if id != except && b.ISBN == isbn {
			return true
		}
	}
	return false
}

func (s *memoryService) sorted(keep func(Book) bool) []*Book {
	out := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
