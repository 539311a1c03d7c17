// internal/membership/domain.go
package membership

import (
	"fmt"
	"time"

	"libralend/internal/errs"
)

// MaxOpenLoans is the number of simultaneous open loans a member may hold.
const MaxOpenLoans = 5

// AccountStatus is a member's standing with the library.
type AccountStatus string

const (
	StatusActive      AccountStatus = "ACTIVE"
	StatusBlacklisted AccountStatus = "BLACKLISTED"
)

// Validate rejects values other than ACTIVE and BLACKLISTED.
func (s AccountStatus) Validate() error {
	switch s {
	case StatusActive, StatusBlacklisted:
		return nil
	}
	return errs.NewValidationError("account_status", fmt.Sprintf("%q is not a valid account status", string(s)))
}

// Member represents a library member.
type Member struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Email         string        `json:"email" db:"email"`
	OpenLoanCount int           `json:"open_loan_count" db:"open_loan_count"`
	AccountStatus AccountStatus `json:"account_status" db:"account_status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
