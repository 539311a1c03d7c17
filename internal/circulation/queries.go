// internal/circulation/queries.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libralend/internal/errs"
)

// Read operations take no locks; they observe committed store state.

func (s *service) OpenLoan(ctx context.Context, barcode string) (*Loan, error) {
	if err := requireID("barcode", barcode); err != nil {
		return nil, err
	}

	loan, err := s.loans.FindOpenLoanByBarcode(ctx, barcode)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.NewNotFoundError(errs.CodeLendingNotFound, barcode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open loan for item %s: %w", barcode, err)
	}
	return &loan, nil
}

// Loans lists every loan, open and closed, oldest first: the lending report.
func (s *service) Loans(ctx context.Context) ([]Loan, error) {
	loans, err := s.loans.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *service) LoansByMember(ctx context.Context, memberID string) ([]Loan, error) {
	if err := requireID("member_id", memberID); err != nil {
		return nil, err
	}
	if _, err := s.gate.Member(ctx, memberID); err != nil {
		return nil, err
	}

	loans, err := s.loans.FindLoansByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loans for member %s: %w", memberID, err)
	}
	return loans, nil
}

func (s *service) FinesByMember(ctx context.Context, memberID string, unpaidOnly bool) ([]Fine, error) {
	if err := requireID("member_id", memberID); err != nil {
		return nil, err
	}
	if _, err := s.gate.Member(ctx, memberID); err != nil {
		return nil, err
	}

	fines, err := s.fines.FindFinesByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find fines for member %s: %w", memberID, err)
	}
	if unpaidOnly {
		return unpaidFines(fines), nil
	}
	return fines, nil
}

// Fines lists every fine, oldest first: the fine report.
func (s *service) Fines(ctx context.Context, unpaidOnly bool) ([]Fine, error) {
	fines, err := s.fines.ListFines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fines: %w", err)
	}
	if unpaidOnly {
		return unpaidFines(fines), nil
	}
	return fines, nil
}

func unpaidFines(fines []Fine) []Fine {
	unpaid := make([]Fine, 0, len(fines))
	for _, f := range fines {
		if !f.IsPaid() {
			unpaid = append(unpaid, f)
		}
	}
	return unpaid
}

func (s *service) FinesByBarcode(ctx context.Context, barcode string) ([]Fine, error) {
	if err := requireID("barcode", barcode); err != nil {
		return nil, err
	}

	fines, err := s.fines.FindFinesByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to find fines for item %s: %w", barcode, err)
	}
	return fines, nil
}

func (s *service) Reservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	if id == uuid.Nil {
		return nil, errs.NewValueIsRequiredError("reservation_id")
	}

	r, err := s.reservations.FindReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// WaitingReservation returns the hold currently queued on barcode.
func (s *service) WaitingReservation(ctx context.Context, barcode string) (*Reservation, error) {
	if err := requireID("barcode", barcode); err != nil {
		return nil, err
	}

	r, err := s.reservations.FindWaitingReservationByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *service) Reservations(ctx context.Context) ([]Reservation, error) {
	reservations, err := s.reservations.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (s *service) ReservationsByMember(ctx context.Context, memberID string) ([]Reservation, error) {
	if err := requireID("member_id", memberID); err != nil {
		return nil, err
	}

	reservations, err := s.reservations.FindReservationsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations for member %s: %w", memberID, err)
	}
	return reservations, nil
}

// OverdueLoans lists the loans that would be late if returned at asOf, each
// with the fine the configured policy would charge.
func (s *service) OverdueLoans(ctx context.Context, asOf time.Time) ([]OverdueLoan, error) {
	if asOf.IsZero() {
		return nil, errs.NewValueIsRequiredError("as_of")
	}
	asOf = asOf.UTC()

	loans, err := s.loans.FindOverdueLoans(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue loans: %w", err)
	}

	report := make([]OverdueLoan, 0, len(loans))
	for _, loan := range loans {
		report = append(report, OverdueLoan{
			Loan:          loan,
			AsOf:          asOf,
			DaysOverdue:   DaysOverdue(loan, asOf),
			ProjectedFine: s.policy.CalculateFine(loan, asOf),
		})
	}
	return report, nil
}

func (s *service) History(ctx context.Context, barcode string) ([]RecordedEvent, error) {
	if err := requireID("barcode", barcode); err != nil {
		return nil, err
	}

	history, err := s.journal.History(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of item %s: %w", barcode, err)
	}
	return history, nil
}
