package circulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libralend/internal/catalog"
	"libralend/internal/membership"
)

func TestCreateLoan_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		memberExists := rapid.Bool().Draw(t, "memberExists")
		bookExists := rapid.Bool().Draw(t, "bookExists")
		bookAvailable := rapid.Bool().Draw(t, "bookAvailable")
		catalogDown := rapid.Bool().Draw(t, "catalogDown")
		hasExpected := rapid.Bool().Draw(t, "hasExpected")

		members := newFakeMembers()
		if memberExists {
			members.members["m1"] = &membership.Member{ID: "m1"}
		}
		cat := newFakeCatalog()
		if bookExists {
			cat.books[7] = &catalog.Book{ID: 7, Available: bookAvailable}
		}
		if catalogDown {
			cat.getErr = errRemote
		}
		repo := NewMemoryRepository()
		svc := NewService(repo, cat, members)

		req := CreateLoanRequest{MemberID: "m1", BookID: 7}
		if hasExpected {
			req.ExpectedReturn = datePtr("2025-06-01")
		}
		view, err := svc.CreateLoan(context.Background(), req)

		loans, listErr := repo.List(context.Background())
		require.NoError(t, listErr)
		writes := cat.writes()

		switch {
		case !memberExists:
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Empty(t, writes)
		case catalogDown || !bookExists:
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Empty(t, writes)
		case !bookAvailable:
			assert.ErrorIs(t, err, ErrConflict)
			assert.Empty(t, writes)
		case !hasExpected:
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Empty(t, writes)
		default:
			require.NoError(t, err)
			assert.Equal(t, StatusOnLoan, view.Status)
			assert.Nil(t, view.ActualReturn)
			require.Len(t, writes, 1)
			assert.False(t, writes[0].Available)
			assert.False(t, cat.books[7].Available)
			assert.Len(t, loans, 1)
			return
		}
		assert.Empty(t, loans)
	})
}

func TestLoanSequence_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cat := newFakeCatalog(
			&catalog.Book{ID: 1, Available: true},
			&catalog.Book{ID: 2, Available: true},
			&catalog.Book{ID: 3, Available: true},
		)
		members := newFakeMembers(&membership.Member{ID: "m1"}, &membership.Member{ID: "m2"})
		repo := NewMemoryRepository()
		now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
		svc := NewService(repo, cat, members, WithClock(func() time.Time { return now }))
		ctx := context.Background()

		var created []string
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(created) > 0 && rapid.Bool().Draw(t, "return") {
				id := rapid.SampledFrom(created).Draw(t, "loan")
				before, err := repo.Get(ctx, id)
				require.NoError(t, err)

				view, err := svc.ReturnLoan(ctx, id)
				if before.Status == StatusReturned {
					assert.ErrorIs(t, err, ErrConflict)
				} else {
					require.NoError(t, err)
					assert.Equal(t, DateOf(now), *view.ActualReturn)
				}
			} else {
				req := CreateLoanRequest{
					MemberID:       rapid.SampledFrom([]string{"m1", "m2"}).Draw(t, "member"),
					BookID:         rapid.Int64Range(1, 3).Draw(t, "book"),
					ExpectedReturn: datePtr("2025-03-15"),
				}
				view, err := svc.CreateLoan(ctx, req)
				if err == nil {
					created = append(created, view.ID)
				} else {
					assert.ErrorIs(t, err, ErrConflict)
				}
			}
			now = now.Add(time.Duration(rapid.IntRange(0, 72).Draw(t, "hours")) * time.Hour)

			loans, err := repo.List(ctx)
			require.NoError(t, err)
			active := map[int64]int{}
			for _, loan := range loans {
				assert.Equal(t, loan.Status == StatusReturned, loan.ActualReturn != nil)
				if loan.Status.Active() {
					active[loan.BookID]++
				}
			}
			for id := int64(1); id <= 3; id++ {
				assert.LessOrEqual(t, active[id], 1)
				assert.Equal(t, active[id] == 0, cat.books[id].Available)
			}
		}
	})
}

func TestDate_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unix := rapid.Int64Range(0, 4102444800).Draw(t, "unix")
		d := DateOf(time.Unix(unix, 0).UTC())

		text, err := d.MarshalText()
		require.NoError(t, err)

		var parsed Date
		require.NoError(t, parsed.UnmarshalText(text))
		assert.True(t, d.Equal(parsed))
		assert.Len(t, string(text), 10)
	})
}
