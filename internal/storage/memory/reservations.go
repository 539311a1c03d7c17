// internal/storage/memory/reservations.go
package memory

import (
	"context"

	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateReservation(_ context.Context, r circulation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservationIndex[r.ID]; ok {
		return errs.NewConflictError(errs.CodeAlreadyExists, "reservation %q already exists", r.ID)
	}
	if r.Status == circulation.ReservationWaiting && s.hasWaiting(r.Barcode, uuid.Nil) {
		return errs.NewConflictError(errs.CodeAlreadyReserved, "item %q already has a waiting reservation", r.Barcode)
	}

	s.reservationIndex[r.ID] = len(s.reservations)
	s.reservations = append(s.reservations, r)
	return nil
}

func (s *Store) UpdateReservation(_ context.Context, r circulation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.reservationIndex[r.ID]
	if !ok {
		return errs.NewNotFoundError(errs.CodeReservationNotFound, r.ID.String())
	}
	if r.Status == circulation.ReservationWaiting && s.hasWaiting(r.Barcode, r.ID) {
		return errs.NewConflictError(errs.CodeAlreadyReserved, "item %q already has a waiting reservation", r.Barcode)
	}

	s.reservations[i] = r
	return nil
}

func (s *Store) hasWaiting(barcode string, except uuid.UUID) bool {
	for _, r := range s.reservations {
		if r.Barcode == barcode && r.Status == circulation.ReservationWaiting && r.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) FindReservation(_ context.Context, id uuid.UUID) (circulation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.reservationIndex[id]
	if !ok {
		return circulation.Reservation{}, errs.NewNotFoundError(errs.CodeReservationNotFound, id.String())
	}
	return s.reservations[i], nil
}

func (s *Store) FindWaitingReservationByBarcode(_ context.Context, barcode string) (circulation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reservations {
		if r.Barcode == barcode && r.Status == circulation.ReservationWaiting {
			return r, nil
		}
	}
	return circulation.Reservation{}, errs.NewNotFoundError(errs.CodeReservationNotFound, barcode)
}

func (s *Store) FindReservationsByBarcode(_ context.Context, barcode string) ([]circulation.Reservation, error) {
	return s.filterReservations(func(r circulation.Reservation) bool { return r.Barcode == barcode }), nil
}

func (s *Store) FindReservationsByMember(_ context.Context, memberID string) ([]circulation.Reservation, error) {
	return s.filterReservations(func(r circulation.Reservation) bool { return r.MemberID == memberID }), nil
}

func (s *Store) FindWaitingReservations(_ context.Context) ([]circulation.Reservation, error) {
	return s.filterReservations(func(r circulation.Reservation) bool {
		return r.Status == circulation.ReservationWaiting
	}), nil
}

func (s *Store) ListReservations(_ context.Context) ([]circulation.Reservation, error) {
	return s.filterReservations(func(circulation.Reservation) bool { return true }), nil
}

func (s *Store) filterReservations(keep func(circulation.Reservation) bool) []circulation.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := []circulation.Reservation{}
	for _, r := range s.reservations {
		if keep(r) {
			reservations = append(reservations, r)
		}
	}
	return reservations
}
