// internal/storage/memory/fines.go
package memory

import (
	"context"

	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateFine(_ context.Context, fine circulation.Fine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fineIndex[fine.ID]; ok {
		return errs.NewConflictError(errs.CodeAlreadyExists, "fine %q already exists", fine.ID)
	}
	for _, f := range s.fines {
		if f.LoanID == fine.LoanID {
			return errs.NewConflictError(errs.CodeAlreadyExists, "loan %q is already fined", fine.LoanID)
		}
	}

	s.fineIndex[fine.ID] = len(s.fines)
	s.fines = append(s.fines, cloneFine(fine))
	return nil
}

func (s *Store) UpdateFine(_ context.Context, fine circulation.Fine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.fineIndex[fine.ID]
	if !ok {
		return errs.NewNotFoundError(errs.CodeFineNotFound, fine.ID.String())
	}
	s.fines[i] = cloneFine(fine)
	return nil
}

func (s *Store) FindFine(_ context.Context, id uuid.UUID) (circulation.Fine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.fineIndex[id]
	if !ok {
		return circulation.Fine{}, errs.NewNotFoundError(errs.CodeFineNotFound, id.String())
	}
	return cloneFine(s.fines[i]), nil
}

func (s *Store) FindFinesByMember(_ context.Context, memberID string) ([]circulation.Fine, error) {
	return s.filterFines(func(f circulation.Fine) bool { return f.MemberID == memberID }), nil
}

func (s *Store) FindFinesByBarcode(_ context.Context, barcode string) ([]circulation.Fine, error) {
	return s.filterFines(func(f circulation.Fine) bool { return f.Barcode == barcode }), nil
}

func (s *Store) ListFines(_ context.Context) ([]circulation.Fine, error) {
	return s.filterFines(func(circulation.Fine) bool { return true }), nil
}

func (s *Store) filterFines(keep func(circulation.Fine) bool) []circulation.Fine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fines := []circulation.Fine{}
	for _, f := range s.fines {
		if keep(f) {
			fines = append(fines, cloneFine(f))
		}
	}
	return fines
}
