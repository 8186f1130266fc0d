package circulation

import (
	"context"

	"libralend/internal/catalog"
	"libralend/internal/membership"
)

// project joins a loan with display fields. It has no side effects; a nil
// book or member leaves the matching fields empty.
func project(loan *Loan, book *catalog.Book, member *membership.Member) *LoanView {
	view := &LoanView{Loan: *loan}
	if book != nil {
		view.BookTitle = book.Title
	}
	if member != nil {
		view.MemberFirstName = member.FirstName
		view.MemberLastName = member.LastName
	}
	return view
}

// enricher fetches display data for one read. Lookups are shared only within
// that read, so a list touching the same book twice asks the catalog once.
type enricher struct {
	s       *service
	books   map[int64]*catalog.Book
	members map[string]*membership.Member
}

func (s *service) newEnricher() *enricher {
	return &enricher{
		s:       s,
		books:   make(map[int64]*catalog.Book),
		members: make(map[string]*membership.Member),
	}
}

func (e *enricher) view(ctx context.Context, loan *Loan) *LoanView {
	return project(loan, e.book(ctx, loan.BookID), e.member(ctx, loan.MemberID))
}

func (e *enricher) views(ctx context.Context, loans []*Loan) []*LoanView {
	out := make([]*LoanView, 0, len(loans))
	for _, loan := range loans {
		out = append(out, e.view(ctx, loan))
	}
	return out
}

func (e *enricher) book(ctx context.Context, id int64) *catalog.Book {
	if book, ok := e.books[id]; ok {
		return book
	}
	book, err := e.s.catalog.GetBook(ctx, id)
	if err != nil {
		e.s.logger.Debug("enrichment: book lookup failed", "book_id", id, "error", err)
		book = nil
	}
	e.books[id] = book
	return book
}

func (e *enricher) member(ctx context.Context, id string) *membership.Member {
	if member, ok := e.members[id]; ok {
		return member
	}
	member, err := e.s.members.GetMember(ctx, id)
	if err != nil {
		e.s.logger.Debug("enrichment: member lookup failed", "member_id", id, "error", err)
		member = nil
	}
	e.members[id] = member
	return member
}
