// internal/membership/gate.go
package membership

import (
	"context"
	"fmt"
	"time"
)

// Gate owns a member's open-loan counter and account status.
// Only the circulation ledger calls the mutating methods, always while
// holding that member's critical section.
type Gate struct {
	directory Directory
	now       func() time.Time
}

// NewGate creates a Gate over the given directory.
func NewGate(directory Directory) *Gate {
	return &Gate{directory: directory, now: time.Now}
}

// Member returns the current state of a member.
func (g *Gate) Member(ctx context.Context, id string) (Member, error) {
	return g.directory.FindMember(ctx, id)
}

// IncrementOpenLoans claims a loan slot, re-checking eligibility against the stored record.
func (g *Gate) IncrementOpenLoans(ctx context.Context, id string) (Member, error) {
	member, err := g.directory.FindMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if err := Eligibility(member); err != nil {
		return Member{}, err
	}

	member.OpenLoanCount++
	return g.save(ctx, member)
}

// DecrementOpenLoans releases a loan slot. The counter never goes below zero.
func (g *Gate) DecrementOpenLoans(ctx context.Context, id string) (Member, error) {
	member, err := g.directory.FindMember(ctx, id)
	if err != nil {
		return Member{}, err
	}

	if member.OpenLoanCount > 0 {
		member.OpenLoanCount--
	}
	return g.save(ctx, member)
}

// ReclaimOpenLoan takes back a slot released by a return that was rolled
// back. It skips the eligibility check: the loan it counts is still open.
func (g *Gate) ReclaimOpenLoan(ctx context.Context, id string) (Member, error) {
	member, err := g.directory.FindMember(ctx, id)
	if err != nil {
		return Member{}, err
	}

	member.OpenLoanCount++
	return g.save(ctx, member)
}

// SetAccountStatus blacklists or reactivates a member.
func (g *Gate) SetAccountStatus(ctx context.Context, id string, status AccountStatus) (Member, error) {
	if err := status.Validate(); err != nil {
		return Member{}, err
	}

	member, err := g.directory.FindMember(ctx, id)
	if err != nil {
		return Member{}, err
	}

	member.AccountStatus = status
	return g.save(ctx, member)
}

func (g *Gate) save(ctx context.Context, member Member) (Member, error) {
	member.UpdatedAt = g.now().UTC()
	if err := g.directory.SaveMember(ctx, member); err != nil {
		return Member{}, fmt.Errorf("failed to save member %s: %w", member.ID, err)
	}
	return member, nil
}
