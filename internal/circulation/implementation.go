package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/catalog"
)

const (
	defaultCompensationAttempts = 3
	defaultCompensationInterval = 100 * time.Millisecond
	maxReturnUpdateAttempts     = 3
)

// service implements the Service interface.
type service struct {
	repo    Repository
	catalog Catalog
	members Members
	logger  Logger
	now     func() time.Time

	compensationAttempts uint
	compensationInterval time.Duration

	tracer               trace.Tracer
	loansCreated         metric.Int64Counter
	loansReturned        metric.Int64Counter
	compensationFailures metric.Int64Counter
}

// Option configures the circulation service.
type Option func(*service)

func WithLogger(l Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithClock sets the source of "today" for start and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithCompensationRetry bounds the retries of the availability write on return.
func WithCompensationRetry(attempts uint, interval time.Duration) Option {
	return func(s *service) {
		s.compensationAttempts = max(attempts, 1)
		s.compensationInterval = interval
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) { s.tracer = tp.Tracer("libralend/circulation") }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *service) { s.registerMetrics(mp.Meter("libralend/circulation")) }
}

// NewService creates a new circulation service instance.
func NewService(repo Repository, catalog Catalog, members Members, opts ...Option) Service {
	s := &service{
		repo:                 repo,
		catalog:              catalog,
		members:              members,
		logger:               slog.New(slog.DiscardHandler),
		now:                  time.Now,
		compensationAttempts: defaultCompensationAttempts,
		compensationInterval: defaultCompensationInterval,
		tracer:               otel.Tracer("libralend/circulation"),
	}
	s.registerMetrics(otel.Meter("libralend/circulation"))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) registerMetrics(meter metric.Meter) {
	var err error
	if s.loansCreated, err = meter.Int64Counter("circulation.loans.created"); err != nil {
		s.loansCreated = noop.Int64Counter{}
	}
	if s.loansReturned, err = meter.Int64Counter("circulation.loans.returned"); err != nil {
		s.loansReturned = noop.Int64Counter{}
	}
	if s.compensationFailures, err = meter.Int64Counter("circulation.compensation.failures",
		metric.WithDescription("availability writes that could not be applied after a return or failed create"),
	); err != nil {
		s.compensationFailures = noop.Int64Counter{}
	}
}

// CreateLoan orchestrates the lending saga: check the member, check the book,
// take the book off the shelf at the catalog, then record the loan.
func (s *service) CreateLoan(ctx context.Context, req CreateLoanRequest) (*LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.CreateLoan", trace.WithAttributes(
		attribute.String("member.id", req.MemberID),
		attribute.Int64("book.id", req.BookID),
	))
	defer span.End()

	view, err := s.createLoan(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("loan.id", view.ID))
	return view, nil
}

func (s *service) createLoan(ctx context.Context, req CreateLoanRequest) (*LoanView, error) {
	// Step 1: Validate the member
	exists, err := s.members.Exists(ctx, req.MemberID)
	if err != nil {
		return nil, remoteFailure(EntityMember, req.MemberID, err)
	}
	if !exists {
		return nil, notFound(EntityMember, req.MemberID, nil)
	}

	// Step 2: Check book availability. Any failure reading the book counts as not found.
	book, err := s.catalog.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, notFound(EntityBook, req.bookRef(), err)
	}
	if !book.Available {
		return nil, conflict(EntityBook, req.bookRef(), "book is not available")
	}

	if req.ExpectedReturn == nil || req.ExpectedReturn.IsZero() {
		return nil, invalidArgument("expected return date is required")
	}

	// Step 3: Mark the book unavailable, only if nobody beat us to it
	expected := true
	if _, err := s.catalog.SetAvailability(ctx, req.BookID, false, &expected); err != nil {
		switch {
		case errors.Is(err, catalog.ErrAvailabilityMismatch):
			return nil, conflict(EntityBook, req.bookRef(), "book is not available")
		case errors.Is(err, catalog.ErrBookNotFound):
			return nil, notFound(EntityBook, req.bookRef(), err)
		default:
			return nil, remoteFailure(EntityBook, req.bookRef(), err)
		}
	}

	// Step 4: Record the loan
	start := s.today()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = *req.StartDate
	}
	loan := &Loan{
		ID:             uuid.NewString(),
		MemberID:       req.MemberID,
		BookID:         req.BookID,
		StartDate:      start,
		ExpectedReturn: *req.ExpectedReturn,
		Status:         StatusOnLoan,
	}

	if err := s.repo.Insert(ctx, loan); err != nil {
		s.logger.Warn("failed to record loan, putting book back on the shelf",
			"loan_id", loan.ID, "book_id", loan.BookID, "error", err)
		s.compensateAvailability(ctx, loan.BookID, "create")
		return nil, fmt.Errorf("failed to record loan: %w", err)
	}

	s.loansCreated.Add(ctx, 1)
	s.logger.Info("loan created", "loan_id", loan.ID, "member_id", loan.MemberID, "book_id", loan.BookID)

	return s.newEnricher().view(ctx, loan), nil
}

// ReturnLoan records a return. The local commit always happens; the catalog
// write that puts the book back follows it and is best effort.
func (s *service) ReturnLoan(ctx context.Context, id string) (*LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.ReturnLoan", trace.WithAttributes(attribute.String("loan.id", id)))
	defer span.End()

	view, err := s.returnLoan(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return view, nil
}

func (s *service) returnLoan(ctx context.Context, id string) (*LoanView, error) {
	loan, err := s.loadLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.Status == StatusReturned {
		return nil, conflict(EntityLoan, id, "loan already returned")
	}

	today := s.today()
	returned := *loan
	returned.Status = StatusReturned
	returned.ActualReturn = &today

	for attempt := 1; ; attempt++ {
		err := s.repo.Update(ctx, &returned)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConcurrencyConflict) || attempt == maxReturnUpdateAttempts {
			return nil, fmt.Errorf("failed to record return: %w", err)
		}

		current, err := s.loadLoan(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == StatusReturned {
			return nil, conflict(EntityLoan, id, "loan already returned")
		}
		returned.Version = current.Version
	}

	// Only the return that committed puts the book back.
	s.compensateAvailability(ctx, returned.BookID, "return")

	s.loansReturned.Add(ctx, 1)
	s.logger.Info("loan returned", "loan_id", returned.ID, "book_id", returned.BookID)

	return s.newEnricher().view(ctx, &returned), nil
}

// compensateAvailability puts a book back on the shelf. Failures are logged
// and counted, never returned.
func (s *service) compensateAvailability(ctx context.Context, bookID int64, reason string) {
	ctx, span := s.tracer.Start(ctx, "circulation.compensateAvailability", trace.WithAttributes(
		attribute.Int64("book.id", bookID),
		attribute.String("compensation.reason", reason),
	))
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.compensationInterval

	_, err := backoff.Retry(ctx, func() (*catalog.Book, error) {
		book, err := s.catalog.SetAvailability(ctx, bookID, true, nil)
		if errors.Is(err, catalog.ErrBookNotFound) {
			return nil, backoff.Permanent(err)
		}
		return book, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.compensationAttempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compensation failed")
		s.compensationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		s.logger.Error("failed to restore book availability", "book_id", bookID, "reason", reason, "error", err)
	}
}

// GetLoan retrieves a loan by its ID.
func (s *service) GetLoan(ctx context.Context, id string) (*LoanView, error) {
	loan, err := s.loadLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.newEnricher().view(ctx, loan), nil
}

func (s *service) ListLoans(ctx context.Context) ([]*LoanView, error) {
	loans, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return s.newEnricher().views(ctx, loans), nil
}

// ListLoansByMember fails with NotFound when the member does not exist, even
// if loans reference the id.
func (s *service) ListLoansByMember(ctx context.Context, memberID string) ([]*LoanView, error) {
	exists, err := s.members.Exists(ctx, memberID)
	if err != nil {
		return nil, remoteFailure(EntityMember, memberID, err)
	}
	if !exists {
		return nil, notFound(EntityMember, memberID, nil)
	}

	loans, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for member %s: %w", memberID, err)
	}
	return s.newEnricher().views(ctx, loans), nil
}

func (s *service) ListLoansByBookAndStatus(ctx context.Context, bookID int64, status Status) ([]*LoanView, error) {
	if !status.Valid() {
		return nil, invalidArgument(fmt.Sprintf("unknown loan status %q", status))
	}
	loans, err := s.repo.ListByBookAndStatus(ctx, bookID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for book %d: %w", bookID, err)
	}
	return s.newEnricher().views(ctx, loans), nil
}

func (s *service) ListLoansByStatus(ctx context.Context, status Status) ([]*LoanView, error) {
	if !status.Valid() {
		return nil, invalidArgument(fmt.Sprintf("unknown loan status %q", status))
	}
	loans, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s loans: %w", status, err)
	}
	return s.newEnricher().views(ctx, loans), nil
}

func (s *service) loadLoan(ctx context.Context, id string) (*Loan, error) {
	loan, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrLoanNotFound) {
		return nil, notFound(EntityLoan, id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loan %s: %w", id, err)
	}
	return loan, nil
}

// today is the current UTC calendar date.
func (s *service) today() Date {
	return DateOf(s.now().UTC())
}
