// internal/storage/postgres/reservations.go
package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateReservation(ctx context.Context, r circulation.Reservation) error {
	ds := dialect.Insert(tableReservations).Rows(goqu.Record{
		"id":         r.ID,
		"barcode":    r.Barcode,
		"member_id":  r.MemberID,
		"status":     string(r.Status),
		"created_at": r.CreatedAt,
		"updated_at": r.UpdatedAt,
	})
	return s.insert(ctx, ds, "reservation for item "+r.Barcode)
}

func (s *Store) UpdateReservation(ctx context.Context, r circulation.Reservation) error {
	ds := dialect.Update(tableReservations).
		Set(goqu.Record{
			"status":     string(r.Status),
			"updated_at": r.UpdatedAt,
		}).
		Where(goqu.C("id").Eq(r.ID))

	return s.update(ctx, ds, errs.NewNotFoundError(errs.CodeReservationNotFound, r.ID.String()), "reservation "+r.ID.String())
}

func (s *Store) FindReservation(ctx context.Context, id uuid.UUID) (circulation.Reservation, error) {
	var r circulation.Reservation
	err := s.get(ctx, &r, dialect.From(tableReservations).Where(goqu.C("id").Eq(id)))
	if isNoRows(err) {
		return circulation.Reservation{}, errs.NewNotFoundError(errs.CodeReservationNotFound, id.String())
	}
	if err != nil {
		return circulation.Reservation{}, fmt.Errorf("failed to find reservation %s: %w", id, err)
	}
	return r, nil
}

func (s *Store) FindWaitingReservationByBarcode(ctx context.Context, barcode string) (circulation.Reservation, error) {
	var r circulation.Reservation
	err := s.get(ctx, &r, dialect.From(tableReservations).Where(
		goqu.C("barcode").Eq(barcode),
		goqu.C("status").Eq(string(circulation.ReservationWaiting)),
	))
	if isNoRows(err) {
		return circulation.Reservation{}, errs.NewNotFoundError(errs.CodeReservationNotFound, barcode)
	}
	if err != nil {
		return circulation.Reservation{}, fmt.Errorf("failed to find waiting reservation for item %s: %w", barcode, err)
	}
	return r, nil
}

func (s *Store) FindReservationsByBarcode(ctx context.Context, barcode string) ([]circulation.Reservation, error) {
	return s.listReservations(ctx, goqu.C("barcode").Eq(barcode))
}

func (s *Store) FindReservationsByMember(ctx context.Context, memberID string) ([]circulation.Reservation, error) {
	return s.listReservations(ctx, goqu.C("member_id").Eq(memberID))
}

func (s *Store) FindWaitingReservations(ctx context.Context) ([]circulation.Reservation, error) {
	return s.listReservations(ctx, goqu.C("status").Eq(string(circulation.ReservationWaiting)))
}

func (s *Store) ListReservations(ctx context.Context) ([]circulation.Reservation, error) {
	return s.listReservations(ctx)
}

func (s *Store) listReservations(ctx context.Context, where ...goqu.Expression) ([]circulation.Reservation, error) {
	reservations := []circulation.Reservation{}
	ds := dialect.From(tableReservations).Where(where...).Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	if err := s.selectAll(ctx, &reservations, ds); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}
