// Package reconcile holds the jobs that run beside the lending core: the
// overdue sweep and the consistency audit between loans and the catalog.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"libralend/internal/circulation"
)

const sweepTimeout = 5 * time.Minute

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OverdueSweeper marks ON_LOAN loans past their expected return date as OVERDUE.
type OverdueSweeper struct {
	repo   circulation.Repository
	logger Logger
	now    func() time.Time
}

func NewOverdueSweeper(repo circulation.Repository, logger Logger) *OverdueSweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OverdueSweeper{repo: repo, logger: logger, now: time.Now}
}

// Sweep runs one pass and reports how many loans it marked. A loan changed
// concurrently (usually returned) is skipped.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	loans, err := s.repo.ListByStatus(ctx, circulation.StatusOnLoan)
	if err != nil {
		return 0, fmt.Errorf("failed to list loans on loan: %w", err)
	}

	today := circulation.DateOf(s.now().UTC())
	var (
		marked int
		errs   []error
	)
	for _, loan := range loans {
		if !loan.ExpectedReturn.Before(today) {
			continue
		}

		loan.Status = circulation.StatusOverdue
		err := s.repo.Update(ctx, loan)
		switch {
		case errors.Is(err, circulation.ErrConcurrencyConflict):
			s.logger.Debug("loan changed during sweep, skipping", "loan_id", loan.ID)
		case err != nil:
			errs = append(errs, fmt.Errorf("loan %s: %w", loan.ID, err))
		default:
			marked++
			s.logger.Info("loan overdue", "loan_id", loan.ID, "member_id", loan.MemberID, "expected_return_date", loan.ExpectedReturn.String())
		}
	}
	return marked, errors.Join(errs...)
}

// Schedule starts a cron scheduler running Sweep on spec. Stop the returned
// scheduler to end it.
func (s *OverdueSweeper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid overdue sweep schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func (s *OverdueSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	marked, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", "marked", marked, "error", err)
		return
	}
	s.logger.Info("overdue sweep finished", "marked", marked)
}
