package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"
)

const (
	tableLoans           = "loans"
	colSeq               = "seq"
	colID                = "id"
	colMemberID          = "member_id"
	colBookID            = "book_id"
	colStartDate         = "start_date"
	colExpectedReturn    = "expected_return_date"
	colActualReturn      = "actual_return_date"
	colStatus            = "status"
	colVersion           = "version"
	dialectPostgres      = "postgres"
	incrementVersionExpr = "version + 1"
)

// Schema creates the loans table. seq preserves insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS loans (
	seq                  BIGSERIAL UNIQUE,
	id                   TEXT PRIMARY KEY,
	member_id            TEXT NOT NULL,
	book_id              BIGINT NOT NULL,
	start_date           DATE NOT NULL,
	expected_return_date DATE NOT NULL,
	actual_return_date   DATE,
	status               TEXT NOT NULL CHECK (status IN ('ON_LOAN', 'RETURNED', 'OVERDUE')),
	version              INTEGER NOT NULL DEFAULT 1,
	CHECK ((status = 'RETURNED') = (actual_return_date IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_loans_member ON loans (member_id, seq);
CREATE INDEX IF NOT EXISTS idx_loans_book_status ON loans (book_id, status, seq);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans (status, seq);
`

var loanColumns = []any{colID, colMemberID, colBookID, colStartDate, colExpectedReturn, colActualReturn, colStatus, colVersion}

// PostgresRepository stores loans in PostgreSQL.
type PostgresRepository struct {
	db      *sqlx.DB
	builder goqu.DialectWrapper
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, builder: goqu.Dialect(dialectPostgres)}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create loans schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, loan *Loan) error {
	query, args, err := r.builder.Insert(tableLoans).Prepared(true).Rows(goqu.Record{
		colID:             loan.ID,
		colMemberID:       loan.MemberID,
		colBookID:         loan.BookID,
		colStartDate:      loan.StartDate.String(),
		colExpectedReturn: loan.ExpectedReturn.String(),
		colActualReturn:   nullableDate(loan.ActualReturn),
		colStatus:         string(loan.Status),
		colVersion:        1,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	loan.Version = 1
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, loan *Loan) error {
	query, args, err := r.builder.Update(tableLoans).Prepared(true).Set(goqu.Record{
		colExpectedReturn: loan.ExpectedReturn.String(),
		colActualReturn:   nullableDate(loan.ActualReturn),
		colStatus:         string(loan.Status),
		colVersion:        goqu.L(incrementVersionExpr),
	}).Where(goqu.Ex{colID: loan.ID, colVersion: loan.Version}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, loan.ID); err != nil {
			return err
		}
		return ErrConcurrencyConflict
	}

	loan.Version++
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Loan, error) {
	query, args, err := r.selectLoans().Where(goqu.Ex{colID: id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var loan Loan
	err = r.db.GetContext(ctx, &loan, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &loan, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Loan, error) {
	return r.selectMany(ctx, r.selectLoans())
}

func (r *PostgresRepository) ListByMember(ctx context.Context, memberID string) ([]*Loan, error) {
	return r.selectMany(ctx, r.selectLoans().Where(goqu.Ex{colMemberID: memberID}))
}

func (r *PostgresRepository) ListByBookAndStatus(ctx context.Context, bookID int64, status Status) ([]*Loan, error) {
	return r.selectMany(ctx, r.selectLoans().Where(goqu.Ex{colBookID: bookID, colStatus: string(status)}))
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]*Loan, error) {
	return r.selectMany(ctx, r.selectLoans().Where(goqu.Ex{colStatus: string(status)}))
}

func (r *PostgresRepository) selectLoans() *goqu.SelectDataset {
	return r.builder.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Order(goqu.I(colSeq).Asc())
}

func (r *PostgresRepository) selectMany(ctx context.Context, ds *goqu.SelectDataset) ([]*Loan, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	loans := make([]*Loan, 0)
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func nullableDate(d *Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
