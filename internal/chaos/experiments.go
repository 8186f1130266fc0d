package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"libralend/internal/circulation"
	"libralend/internal/reconcile"
)

// Lending is what the experiments need from the circulation side.
type Lending struct {
	Service circulation.Service
	Loans   circulation.Repository
	// Auditor must read the catalog through a path the injector does not touch.
	Auditor *reconcile.Auditor
}

func (l Lending) inconsistencies(ctx context.Context) (float64, error) {
	report, err := l.Auditor.Audit(ctx)
	if err != nil {
		return 0, err
	}
	return float64(report.Count(reconcile.LentButAvailable) + report.Count(reconcile.ReturnedButUnavailable)), nil
}

func (l Lending) doubleLent(ctx context.Context) (float64, error) {
	report, err := l.Auditor.Audit(ctx)
	if err != nil {
		return 0, err
	}
	return float64(report.Count(reconcile.MultipleActiveLoans)), nil
}

func (l Lending) loanCount(ctx context.Context) (float64, error) {
	loans, err := l.Loans.List(ctx)
	if err != nil {
		return 0, err
	}
	return float64(len(loans)), nil
}

// CatalogOutageExperiment returns up to maxReturns active loans while every
// catalog call from the lending service fails.
func CatalogOutageExperiment(lending Lending, injector *FaultInjector, maxReturns int, duration time.Duration) Experiment {
	var (
		baseline float64
		returned atomic.Int64
	)

	return Experiment{
		Name:       "catalog-outage-during-returns",
		Hypothesis: "Returns are still recorded while the catalog is down; each one leaves exactly one book marked unavailable and no loan is lost",
		SteadyState: []Metric{
			{Name: "inconsistent_books", Query: lending.inconsistencies, Threshold: Threshold{Operator: "==", Value: 0}},
			{Name: "loans", Query: lending.loanCount, Threshold: Threshold{Operator: ">", Value: 0}},
		},
		Method: []Action{
			{
				Type:   "record-baseline",
				Target: "loan-store",
				Execute: func(ctx context.Context) error {
					n, err := lending.loanCount(ctx)
					baseline = n
					return err
				},
			},
			{
				Type:   "inject-failure",
				Target: "catalog",
				Execute: func(context.Context) error {
					return injector.SetFailureRate(1)
				},
			},
			{
				Type:   "return-loans",
				Target: "circulation",
				Execute: func(ctx context.Context) error {
					active, err := lending.Loans.ListByStatus(ctx, circulation.StatusOnLoan)
					if err != nil {
						return err
					}
					var errs []error
					for _, loan := range active[:min(maxReturns, len(active))] {
						if _, err := lending.Service.ReturnLoan(ctx, loan.ID); err != nil {
							errs = append(errs, fmt.Errorf("return %s: %w", loan.ID, err))
							continue
						}
						returned.Add(1)
					}
					return errors.Join(errs...)
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "remove-failure",
				Target: "catalog",
				Execute: func(context.Context) error {
					injector.Reset()
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "inconsistent_books",
				Condition: func(v float64) bool { return v == float64(returned.Load()) },
				Message:   "Each return during the outage should leave exactly one book marked unavailable",
			},
			{
				Metric:    "loans",
				Condition: func(v float64) bool { return v == baseline },
				Message:   "No loan should be lost or duplicated",
			},
		},
		Duration:       duration,
		SampleInterval: duration / 4,
	}
}

// ConcurrentLoanExperiment fires concurrent loan requests for one book.
func ConcurrentLoanExperiment(lending Lending, memberID string, bookID int64, concurrency int, duration time.Duration) Experiment {
	var created atomic.Int64
	expected := circulation.DateOf(time.Now()).AddDays(14)

	return Experiment{
		Name:       "concurrent-loans-same-book",
		Hypothesis: "The conditional availability write lets at most one of many simultaneous loans for a book through",
		SteadyState: []Metric{
			{Name: "double_lent_books", Query: lending.doubleLent, Threshold: Threshold{Operator: "==", Value: 0}},
		},
		Method: []Action{
			{
				Type:   "concurrent-requests",
				Target: "circulation",
				Execute: func(ctx context.Context) error {
					var wg sync.WaitGroup
					for i := 0; i < concurrency; i++ {
						wg.Add(1)
						go func() {
							defer wg.Done()
							_, err := lending.Service.CreateLoan(ctx, circulation.CreateLoanRequest{
								MemberID:       memberID,
								BookID:         bookID,
								ExpectedReturn: &expected,
							})
							if err == nil {
								created.Add(1)
							}
						}()
					}
					wg.Wait()
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "double_lent_books",
				Condition: func(v float64) bool { return v == 0 && created.Load() <= 1 },
				Message:   "No book should end up with more than one active loan",
			},
		},
		Duration:       duration,
		SampleInterval: duration / 4,
	}
}
