// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"libralend/internal/errs"
)

// service implements the Service interface.
type service struct {
	directory   Directory
	rateLimiter *rate.Limiter
	now         func() time.Time
}

// NewService creates a new membership service instance allowing perMinute
// registrations per minute (with an equal burst).
func NewService(directory Directory, perMinute int) Service {
	if perMinute <= 0 {
		perMinute = 5
	}
	return &service{
		directory:   directory,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:         time.Now,
	}
}

// RegisterMember creates a new ACTIVE member with no open loans.
func (s *service) RegisterMember(ctx context.Context, req RegisterRequest) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, errs.NewRateLimitedError("member registration")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.NewValueIsRequiredError("name")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}

	now := s.now().UTC()
	member := Member{
		ID:            id,
		Name:          name,
		Email:         strings.TrimSpace(req.Email),
		AccountStatus: StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.directory.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to register member %s: %w", id, err)
	}

	return &member, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id string) (*Member, error) {
	if id == "" {
		return nil, errs.NewValueIsRequiredError("member_id")
	}

	member, err := s.directory.FindMember(ctx, id)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns every member in registration order: the member report.
func (s *service) ListMembers(ctx context.Context) ([]Member, error) {
	members, err := s.directory.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
