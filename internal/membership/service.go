// internal/membership/service.go
package membership

import (
	"context"
)

// Directory is the persistence contract for members.
// FindMember returns an errs.ErrNotFound failure with code MEMBER_NOT_FOUND for an unknown id.
type Directory interface {
	FindMember(ctx context.Context, id string) (Member, error)
	SaveMember(ctx context.Context, member Member) error
	CreateMember(ctx context.Context, member Member) error
	ListMembers(ctx context.Context) ([]Member, error)
}

// Service defines the member management operations exposed over HTTP.
// Account status changes go through the circulation ledger, which owns the
// per-member critical section.
type Service interface {
	RegisterMember(ctx context.Context, req RegisterRequest) (*Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// RegisterRequest carries a new member's details. ID is generated when empty.
type RegisterRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
