// internal/circulation/store.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoanStore persists loans.
//
// FindLoan and FindOpenLoanByBarcode report a missing record with an
// errs.ErrNotFound failure. CreateLoan rejects a second open loan for the same
// barcode with an ITEM_UNAVAILABLE conflict.
type LoanStore interface {
	CreateLoan(ctx context.Context, loan Loan) error
	UpdateLoan(ctx context.Context, loan Loan) error
	FindLoan(ctx context.Context, id uuid.UUID) (Loan, error)
	FindOpenLoanByBarcode(ctx context.Context, barcode string) (Loan, error)
	FindLoansByMember(ctx context.Context, memberID string) ([]Loan, error)
	FindOpenLoans(ctx context.Context) ([]Loan, error)
	FindOverdueLoans(ctx context.Context, asOf time.Time) ([]Loan, error)
	ListLoans(ctx context.Context) ([]Loan, error)
}

// FineStore persists fines. CreateFine rejects a second fine for the same loan.
// Listings are ordered by creation time, oldest first.
type FineStore interface {
	CreateFine(ctx context.Context, fine Fine) error
	UpdateFine(ctx context.Context, fine Fine) error
	FindFine(ctx context.Context, id uuid.UUID) (Fine, error)
	FindFinesByMember(ctx context.Context, memberID string) ([]Fine, error)
	FindFinesByBarcode(ctx context.Context, barcode string) ([]Fine, error)
	ListFines(ctx context.Context) ([]Fine, error)
}

// ReservationStore persists reservations. CreateReservation rejects a second
// WAITING reservation for the same barcode with an ALREADY_RESERVED conflict.
// Listings are ordered by creation time, oldest first.
type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	FindReservation(ctx context.Context, id uuid.UUID) (Reservation, error)
	FindWaitingReservationByBarcode(ctx context.Context, barcode string) (Reservation, error)
	FindReservationsByBarcode(ctx context.Context, barcode string) ([]Reservation, error)
	FindReservationsByMember(ctx context.Context, memberID string) ([]Reservation, error)
	FindWaitingReservations(ctx context.Context) ([]Reservation, error)
	ListReservations(ctx context.Context) ([]Reservation, error)
}
