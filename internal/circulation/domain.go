// internal/circulation/domain.go
package circulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"libralend/internal/errs"
)

// Loan records one copy lent to one member. A loan is open until ReturnedAt is set.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Barcode    string     `json:"barcode" db:"barcode"`
	MemberID   string     `json:"member_id" db:"member_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	DueAt      time.Time  `json:"due_at" db:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" db:"returned_at"`
}

// IsOpen reports whether the loan has not been returned yet.
func (l Loan) IsOpen() bool { return l.ReturnedAt == nil }

// IsOverdueAt reports whether a return at t would be late.
func (l Loan) IsOverdueAt(t time.Time) bool { return t.After(l.DueAt) }

// Fine is the penalty produced by one overdue return.
type Fine struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	LoanID    uuid.UUID  `json:"loan_id" db:"loan_id"`
	Barcode   string     `json:"barcode" db:"barcode"`
	MemberID  string     `json:"member_id" db:"member_id"`
	Amount    Money      `json:"amount_minor" db:"amount_minor"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

// IsPaid reports whether the fine has been collected.
func (f Fine) IsPaid() bool { return f.PaidAt != nil }

// ReservationStatus is the lifecycle state of a reservation.
// CANCELED and COMPLETED are terminal.
type ReservationStatus string

const (
	ReservationWaiting   ReservationStatus = "WAITING"
	ReservationCanceled  ReservationStatus = "CANCELED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

// Reservation is a member's claim on one copy.
type Reservation struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	Barcode   string            `json:"barcode" db:"barcode"`
	MemberID  string            `json:"member_id" db:"member_id"`
	Status    ReservationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// ReturnReceipt is the outcome of a return: the closed loan and the fine it produced, if any.
type ReturnReceipt struct {
	Loan Loan  `json:"loan"`
	Fine *Fine `json:"fine,omitempty"`
}

// OverdueLoan is an open loan past its due time with the fine it would carry
// if it were returned at AsOf.
type OverdueLoan struct {
	Loan          Loan      `json:"loan"`
	AsOf          time.Time `json:"as_of"`
	DaysOverdue   int64     `json:"days_overdue"`
	ProjectedFine Money     `json:"projected_fine_minor"`
}

// Money is an amount in minor currency units (cents).
type Money int64

// String renders the amount with two decimals, e.g. 200 -> "2.00".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, int64(m)/100, int64(m)%100)
}

func timePtr(t time.Time) *time.Time { return &t }

func requireID(param, value string) error {
	if value == "" {
		return errs.NewValueIsRequiredError(param)
	}
	return nil
}
