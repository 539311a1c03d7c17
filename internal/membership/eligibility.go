// internal/membership/eligibility.go
package membership

import (
	"fmt"

	"libralend/internal/errs"
)

// Eligibility explains why m may not open another loan, or returns nil.
func Eligibility(m Member) error {
	if m.AccountStatus != StatusActive {
		return errs.NewIneligibleError(m.ID, fmt.Sprintf("account is %s", m.AccountStatus))
	}
	if m.OpenLoanCount >= MaxOpenLoans {
		return errs.NewIneligibleError(m.ID, fmt.Sprintf("already holds %d open loans", m.OpenLoanCount))
	}
	return nil
}

// CanCheckout reports whether m may open another loan right now.
func CanCheckout(m Member) bool {
	return Eligibility(m) == nil
}
