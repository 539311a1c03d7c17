// internal/storage/memory/loans.go
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateLoan(_ context.Context, loan circulation.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loanIndex[loan.ID]; ok {
		return errs.NewConflictError(errs.CodeAlreadyExists, "loan %q already exists", loan.ID)
	}
	if loan.IsOpen() && s.hasOpenLoan(loan.Barcode, uuid.Nil) {
		return errs.NewConflictError(errs.CodeItemUnavailable, "item %q already has an open loan", loan.Barcode)
	}

	s.loanIndex[loan.ID] = len(s.loans)
	s.loans = append(s.loans, cloneLoan(loan))
	return nil
}

func (s *Store) UpdateLoan(_ context.Context, loan circulation.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.loanIndex[loan.ID]
	if !ok {
		return errs.NewNotFoundError(errs.CodeLoanNotFound, loan.ID.String())
	}
	if loan.IsOpen() && s.hasOpenLoan(loan.Barcode, loan.ID) {
		return errs.NewConflictError(errs.CodeItemUnavailable, "item %q already has an open loan", loan.Barcode)
	}

	s.loans[i] = cloneLoan(loan)
	return nil
}

// hasOpenLoan reports whether barcode has an open loan other than except.
func (s *Store) hasOpenLoan(barcode string, except uuid.UUID) bool {
	for _, l := range s.loans {
		if l.Barcode == barcode && l.IsOpen() && l.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) FindLoan(_ context.Context, id uuid.UUID) (circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.loanIndex[id]
	if !ok {
		return circulation.Loan{}, errs.NewNotFoundError(errs.CodeLoanNotFound, id.String())
	}
	return cloneLoan(s.loans[i]), nil
}

func (s *Store) FindOpenLoanByBarcode(_ context.Context, barcode string) (circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.loans {
		if l.Barcode == barcode && l.IsOpen() {
			return cloneLoan(l), nil
		}
	}
	return circulation.Loan{}, errs.NewNotFoundError(errs.CodeLendingNotFound, barcode)
}

func (s *Store) FindLoansByMember(_ context.Context, memberID string) ([]circulation.Loan, error) {
	return s.filterLoans(func(l circulation.Loan) bool { return l.MemberID == memberID }), nil
}

func (s *Store) FindOpenLoans(_ context.Context) ([]circulation.Loan, error) {
	return s.filterLoans(circulation.Loan.IsOpen), nil
}

func (s *Store) FindOverdueLoans(_ context.Context, asOf time.Time) ([]circulation.Loan, error) {
	return s.filterLoans(func(l circulation.Loan) bool {
		return l.IsOpen() && l.IsOverdueAt(asOf)
	}), nil
}

func (s *Store) ListLoans(_ context.Context) ([]circulation.Loan, error) {
	return s.filterLoans(func(circulation.Loan) bool { return true }), nil
}

func (s *Store) filterLoans(keep func(circulation.Loan) bool) []circulation.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := []circulation.Loan{}
	for _, l := range s.loans {
		if keep(l) {
			loans = append(loans, cloneLoan(l))
		}
	}
	return loans
}
