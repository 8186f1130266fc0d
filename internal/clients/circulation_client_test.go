package clients

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/membership"
)

func TestCirculationClient(t *testing.T) {
	ctx := context.Background()

	books := catalog.NewMemoryService()
	book, err := books.AddBook(ctx, catalog.BookInput{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"})
	require.NoError(t, err)
	catalogSrv := httptest.NewServer(catalog.NewHandler(books).Routes())
	t.Cleanup(catalogSrv.Close)

	members := membership.NewMemoryRepository()
	require.NoError(t, members.Insert(ctx, &membership.Member{ID: "m1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, &membership.Credential{}))
	membershipSrv := httptest.NewServer(membership.NewHandler(membership.NewService(members)).Routes())
	t.Cleanup(membershipSrv.Close)

	svc := circulation.NewService(circulation.NewMemoryRepository(),
		NewCatalogClient(catalogSrv.URL),
		NewMembershipClient(membershipSrv.URL),
		circulation.WithCompensationRetry(1, time.Millisecond),
	)
	circulationSrv := httptest.NewServer(circulation.NewHandler(svc).Routes())
	t.Cleanup(circulationSrv.Close)

	client := NewCirculationClient(circulationSrv.URL)
	expected := circulation.MustParseDate("2025-06-01")

	loan, err := client.CreateLoan(ctx, circulation.CreateLoanRequest{MemberID: "m1", BookID: book.ID, ExpectedReturn: &expected})
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusOnLoan, loan.Status)
	assert.Equal(t, "Dune", loan.BookTitle)
	assert.Equal(t, "Ada", loan.MemberFirstName)

	_, err = client.CreateLoan(ctx, circulation.CreateLoanRequest{MemberID: "m1", BookID: book.ID, ExpectedReturn: &expected})
	assert.ErrorIs(t, err, circulation.ErrConflict)

	_, err = client.CreateLoan(ctx, circulation.CreateLoanRequest{MemberID: "ghost", BookID: book.ID, ExpectedReturn: &expected})
	assert.ErrorIs(t, err, circulation.ErrNotFound)

	got, err := client.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)

	onLoan, err := client.ListLoans(ctx, circulation.StatusOnLoan)
	require.NoError(t, err)
	assert.Len(t, onLoan, 1)

	returned, err := client.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, returned.Status)

	_, err = client.ReturnLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, circulation.ErrConflict)

	byMember, err := client.ListMemberLoans(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, circulation.StatusReturned, byMember[0].Status)

	_, err = client.ListLoans(ctx, "LOST")
	assert.ErrorIs(t, err, circulation.ErrInvalidArgument)

	shelf, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, shelf.Available)
}
