package reconcile

import (
	"context"
	"fmt"
	"slices"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
)

type FindingKind string

const (
	// An active loan exists but the catalog says the book is on the shelf.
	LentButAvailable FindingKind = "LENT_BUT_AVAILABLE"
	// Every loan of the book is returned but the catalog still says it is out.
	// This is what a failed return compensation leaves behind.
	ReturnedButUnavailable FindingKind = "RETURNED_BUT_UNAVAILABLE"
	// More than one active loan for the same book.
	MultipleActiveLoans FindingKind = "MULTIPLE_ACTIVE_LOANS"
)

type Finding struct {
	Kind    FindingKind `json:"kind"`
	BookID  int64       `json:"book_id"`
	LoanIDs []string    `json:"loan_ids,omitempty"`
}

// Report is the result of one audit. Unreachable lists books the catalog
// could not be asked about.
type Report struct {
	LoansChecked int       `json:"loans_checked"`
	BooksChecked int       `json:"books_checked"`
	Findings     []Finding `json:"findings"`
	Unreachable  []int64   `json:"unreachable,omitempty"`
}

func (r *Report) Count(kind FindingKind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Complete reports whether every referenced book was checked.
func (r *Report) Complete() bool {
	return len(r.Unreachable) == 0
}

// Consistent holds only for a complete audit with no findings.
func (r *Report) Consistent() bool {
	return r.Complete() && len(r.Findings) == 0
}

// Books is the catalog read the auditor needs.
type Books interface {
	GetBook(ctx context.Context, id int64) (*catalog.Book, error)
}

// Auditor compares loan records with catalog availability. It never writes.
type Auditor struct {
	loans circulation.Repository
	books Books
}

func NewAuditor(loans circulation.Repository, books Books) *Auditor {
	return &Auditor{loans: loans, books: books}
}

type bookLoans struct {
	active   []string
	returned bool
}

func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	loans, err := a.loans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	byBook := make(map[int64]*bookLoans)
	for _, loan := range loans {
		entry, ok := byBook[loan.BookID]
		if !ok {
			entry = &bookLoans{}
			byBook[loan.BookID] = entry
		}
		if loan.Status.Active() {
			entry.active = append(entry.active, loan.ID)
		} else {
			entry.returned = true
		}
	}

	report := &Report{LoansChecked: len(loans), Findings: make([]Finding, 0)}
	ids := make([]int64, 0, len(byBook))
	for id := range byBook {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		entry := byBook[id]
		if len(entry.active) > 1 {
			report.Findings = append(report.Findings, Finding{Kind: MultipleActiveLoans, BookID: id, LoanIDs: entry.active})
		}

		book, err := a.books.GetBook(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Unreachable = append(report.Unreachable, id)
			continue
		}
		report.BooksChecked++

		switch {
		case len(entry.active) > 0 && book.Available:
			report.Findings = append(report.Findings, Finding{Kind: LentButAvailable, BookID: id, LoanIDs: entry.active})
		case len(entry.active) == 0 && entry.returned && !book.Available:
			report.Findings = append(report.Findings, Finding{Kind: ReturnedButUnavailable, BookID: id})
		}
	}
	return report, nil
}
