package circulation

import (
	"context"
	"errors"
	"sync"

	"libralend/internal/catalog"
	"libralend/internal/membership"
)

var errRemote = errors.New("connection refused")

type availabilityCall struct {
	BookID    int64
	Available bool
	Expected  *bool
}

type fakeCatalog struct {
	mu    sync.Mutex
	books map[int64]*catalog.Book

	getErr          error
	setErr          error
	setErrAvailable *bool // only fail writes with this target value
	calls           []availabilityCall
}

func newFakeCatalog(books ...*catalog.Book) *fakeCatalog {
	c := &fakeCatalog{books: make(map[int64]*catalog.Book)}
	for _, b := range books {
		c.books[b.ID] = b
	}
	return c
}

func (c *fakeCatalog) GetBook(_ context.Context, id int64) (*catalog.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}
	b, ok := c.books[id]
	if !ok {
		return nil, catalog.ErrBookNotFound
	}
	out := *b
	return &out, nil
}

func (c *fakeCatalog) SetAvailability(_ context.Context, id int64, available bool, expected *bool) (*catalog.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, availabilityCall{BookID: id, Available: available, Expected: expected})
	if c.setErr != nil && (c.setErrAvailable == nil || *c.setErrAvailable == available) {
		return nil, c.setErr
	}
	b, ok := c.books[id]
	if !ok {
		return nil, catalog.ErrBookNotFound
	}
	if expected != nil && b.Available != *expected {
		return nil, catalog.ErrAvailabilityMismatch
	}
	b.Available = available
	out := *b
	return &out, nil
}

func (c *fakeCatalog) available(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.books[id].Available
}

func (c *fakeCatalog) writes() []availabilityCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]availabilityCall(nil), c.calls...)
}

type fakeMembers struct {
	members   map[string]*membership.Member
	existsErr error
	getErr    error
}

func newFakeMembers(members ...*membership.Member) *fakeMembers {
	m := &fakeMembers{members: make(map[string]*membership.Member)}
	for _, member := range members {
		m.members[member.ID] = member
	}
	return m
}

func (m *fakeMembers) GetMember(_ context.Context, id string) (*membership.Member, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	member, ok := m.members[id]
	if !ok {
		return nil, membership.ErrMemberNotFound
	}
	return member, nil
}

func (m *fakeMembers) Exists(_ context.Context, id string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.members[id]
	return ok, nil
}

// failingRepository fails inserts or updates and otherwise defers to a memory
// repository.
type failingRepository struct {
	*MemoryRepository
	insertErr error
	updateErr error
}

func (r *failingRepository) Update(ctx context.Context, loan *Loan) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryRepository.Update(ctx, loan)
}

func (r *failingRepository) Insert(ctx context.Context, loan *Loan) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.MemoryRepository.Insert(ctx, loan)
}
