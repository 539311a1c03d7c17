// internal/circulation/fine_policy.go
package circulation

import (
	"time"
)

const (
	oneDay = 24 * time.Hour

	// DefaultDailyRate is 1.00 currency unit per day overdue.
	DefaultDailyRate Money = 100
)

// FinePolicy computes the penalty for returning loan at returnedAt.
// Implementations are stateless and must give the same answer for the same
// inputs, whatever the wall clock says.
type FinePolicy interface {
	CalculateFine(loan Loan, returnedAt time.Time) Money
}

// FinePolicyFunc adapts an ordinary function to FinePolicy.
type FinePolicyFunc func(loan Loan, returnedAt time.Time) Money

// CalculateFine calls f(loan, returnedAt).
func (f FinePolicyFunc) CalculateFine(loan Loan, returnedAt time.Time) Money {
	return f(loan, returnedAt)
}

// DaysOverdue is the number of whole days between the due time and returnedAt.
// Partial days round down; an on-time return is zero days.
func DaysOverdue(loan Loan, returnedAt time.Time) int64 {
	if !returnedAt.After(loan.DueAt) {
		return 0
	}
	return int64(returnedAt.Sub(loan.DueAt) / oneDay)
}

// DailyRatePolicy charges DailyRate for every whole day overdue.
type DailyRatePolicy struct {
	DailyRate Money
}

// NewDailyRatePolicy returns the default policy with the given rate.
func NewDailyRatePolicy(rate Money) DailyRatePolicy {
	return DailyRatePolicy{DailyRate: rate}
}

func (p DailyRatePolicy) CalculateFine(loan Loan, returnedAt time.Time) Money {
	return Money(DaysOverdue(loan, returnedAt)) * p.DailyRate
}

// GracePeriodPolicy forgives the first Grace of lateness and charges the
// wrapped policy for the rest, counted from the end of the grace period.
type GracePeriodPolicy struct {
	Grace time.Duration
	Next  FinePolicy
}

func (p GracePeriodPolicy) CalculateFine(loan Loan, returnedAt time.Time) Money {
	shifted := loan
	shifted.DueAt = loan.DueAt.Add(p.Grace)
	return p.Next.CalculateFine(shifted, returnedAt)
}

// CappedPolicy limits the wrapped policy's amount to Cap.
type CappedPolicy struct {
	Cap  Money
	Next FinePolicy
}

func (p CappedPolicy) CalculateFine(loan Loan, returnedAt time.Time) Money {
	amount := p.Next.CalculateFine(loan, returnedAt)
	if amount > p.Cap {
		return p.Cap
	}
	return amount
}
