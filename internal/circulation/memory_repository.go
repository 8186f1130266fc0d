package circulation

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository keeps loans in process. It backs tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	order []string
	loans map[string]Loan
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{loans: make(map[string]Loan)}
}

func (r *MemoryRepository) Insert(_ context.Context, loan *Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[loan.ID]; ok {
		return fmt.Errorf("loan %s already exists", loan.ID)
	}
	loan.Version = 1
	r.loans[loan.ID] = copyLoan(loan)
	r.order = append(r.order, loan.ID)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, loan *Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if stored.Version != loan.Version {
		return ErrConcurrencyConflict
	}
	loan.Version++
	r.loans[loan.ID] = copyLoan(loan)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, ok := r.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	out := copyLoan(&loan)
	return &out, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Loan, error) {
	return r.filter(func(*Loan) bool { return true }), nil
}

func (r *MemoryRepository) ListByMember(_ context.Context, memberID string) ([]*Loan, error) {
	return r.filter(func(l *Loan) bool { return l.MemberID == memberID }), nil
}

func (r *MemoryRepository) ListByBookAndStatus(_ context.Context, bookID int64, status Status) ([]*Loan, error) {
	return r.filter(func(l *Loan) bool { return l.BookID == bookID && l.Status == status }), nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status Status) ([]*Loan, error) {
	return r.filter(func(l *Loan) bool { return l.Status == status }), nil
}

func (r *MemoryRepository) filter(match func(*Loan) bool) []*Loan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Loan, 0)
	for _, id := range r.order {
		loan := r.loans[id]
		if match(&loan) {
			c := copyLoan(&loan)
			out = append(out, &c)
		}
	}
	return out
}

func copyLoan(l *Loan) Loan {
	c := *l
	if l.ActualReturn != nil {
		d := *l.ActualReturn
		c.ActualReturn = &d
	}
	return c
}
