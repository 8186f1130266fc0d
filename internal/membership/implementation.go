package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	repo        Repository
	rateLimiter *rate.Limiter
	now         func() time.Time
}

// Option configures the membership service.
type Option func(*service)

// WithRateLimiter replaces the limiter guarding registration and login.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(s *service) { s.rateLimiter = l }
}

// NewService creates a new membership service instance.
func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo:        repo,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterMember creates a new member with a hashed password.
func (s *service) RegisterMember(ctx context.Context, req RegisterRequest) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	profile := normalize(req.profile())
	if err := profile.validate(); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.Join(ErrInvalidMember, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	credential, err := newCredential(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &Member{
		ID:           uuid.NewString(),
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Email:        profile.Email,
		RegisteredAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Insert(ctx, member, credential); err != nil {
		return nil, err
	}
	return member, nil
}

// Authenticate verifies a member's credentials and returns the member if successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	member, credential, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrMemberNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := credential.matches(password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id string) (*Member, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) MemberExists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *service) ListMembers(ctx context.Context) ([]*Member, error) {
	return s.repo.List(ctx)
}

// UpdateMember replaces the profile fields; the registration timestamp is kept.
func (s *service) UpdateMember(ctx context.Context, id string, profile Profile) (*Member, error) {
	profile = normalize(profile)
	if err := profile.validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, id, profile)
}

func (s *service) DeleteMember(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func normalize(p Profile) Profile {
	return Profile{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Email:     strings.ToLower(strings.TrimSpace(p.Email)),
	}
}
