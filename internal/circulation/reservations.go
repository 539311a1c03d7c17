// internal/circulation/reservations.go
package circulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"libralend/internal/catalog"
	"libralend/internal/errs"
)

// ReservationQueue holds at most one WAITING reservation per copy and moves
// the copy between AVAILABLE and RESERVED.
type ReservationQueue struct {
	*engine
}

// NewReservationQueue creates a ReservationQueue over stores. Pass WithLocks
// to share its locks with a Ledger over the same stores.
func NewReservationQueue(stores Stores, opts ...Option) *ReservationQueue {
	return &ReservationQueue{engine: newEngine(stores, opts)}
}

// Reserve places a WAITING reservation for memberID on an AVAILABLE copy and
// marks the copy RESERVED.
func (q *ReservationQueue) Reserve(ctx context.Context, barcode, memberID string) (reservation Reservation, err error) {
	ctx, span := q.startSpan(ctx, "circulation.reserve",
		attribute.String("item.barcode", barcode),
		attribute.String("member.id", memberID),
	)
	defer func() { endSpan(span, err) }()

	if err := requireID("barcode", barcode); err != nil {
		return Reservation{}, err
	}
	if err := requireID("member_id", memberID); err != nil {
		return Reservation{}, err
	}

	unlock := q.locks.Lock(itemKey(barcode))
	defer unlock()

	item, err := q.tracker.Item(ctx, barcode)
	if err != nil {
		return Reservation{}, err
	}
	if _, err := q.gate.Member(ctx, memberID); err != nil {
		return Reservation{}, err
	}

	waiting, err := q.reservations.FindWaitingReservationByBarcode(ctx, barcode)
	switch {
	case err == nil:
		return Reservation{}, errs.NewConflictError(errs.CodeAlreadyReserved, "item %q is already reserved by reservation %s", barcode, waiting.ID)
	case !errors.Is(err, errs.ErrNotFound):
		return Reservation{}, fmt.Errorf("failed to find waiting reservation for item %s: %w", barcode, err)
	}

	if item.Status != catalog.StatusAvailable {
		return Reservation{}, errs.NewConflictError(errs.CodeItemUnavailable, "item %q is %s", barcode, item.Status)
	}

	now := q.now().UTC()
	reservation = Reservation{
		ID:        uuid.New(),
		Barcode:   barcode,
		MemberID:  memberID,
		Status:    ReservationWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	previous, err := q.tracker.SetStatus(ctx, barcode, catalog.StatusReserved)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to mark item %s reserved: %w", barcode, err)
	}
	if err := q.reservations.CreateReservation(ctx, reservation); err != nil {
		return Reservation{}, q.compensate(ctx, "reserve", err, q.restoreItem(barcode, previous))
	}

	q.recordReservation(ctx, EventItemReserved, reservation)
	q.logger.InfoContext(ctx, "item reserved", "barcode", barcode, "member_id", memberID, "reservation_id", reservation.ID)

	return reservation, nil
}

// Cancel withdraws a WAITING reservation and makes its copy AVAILABLE again.
func (q *ReservationQueue) Cancel(ctx context.Context, id uuid.UUID) (Reservation, error) {
	return q.settle(ctx, id, ReservationCanceled)
}

// Complete fulfils a WAITING reservation. The copy stays RESERVED until the
// reserving member checks it out.
func (q *ReservationQueue) Complete(ctx context.Context, id uuid.UUID) (Reservation, error) {
	return q.settle(ctx, id, ReservationCompleted)
}

// settle moves a WAITING reservation to a terminal status.
func (q *ReservationQueue) settle(ctx context.Context, id uuid.UUID, status ReservationStatus) (reservation Reservation, err error) {
	ctx, span := q.startSpan(ctx, "circulation.reservation."+string(status),
		attribute.String("reservation.id", id.String()),
	)
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return Reservation{}, errs.NewValueIsRequiredError("reservation_id")
	}

	reservation, err = q.reservations.FindReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}

	unlock := q.locks.Lock(itemKey(reservation.Barcode))
	defer unlock()

	// Re-read inside the barcode's section: a concurrent settle may have won.
	reservation, err = q.reservations.FindReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if reservation.Status != ReservationWaiting {
		return Reservation{}, errs.NewConflictError(errs.CodeNotWaiting, "reservation %q is %s", id, reservation.Status)
	}

	var undo []compensation
	if status == ReservationCanceled {
		previous, err := q.tracker.SetStatus(ctx, reservation.Barcode, catalog.StatusAvailable)
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to release item %s: %w", reservation.Barcode, err)
		}
		undo = append(undo, q.restoreItem(reservation.Barcode, previous))
	}

	reservation.Status = status
	reservation.UpdatedAt = q.now().UTC()
	if err := q.reservations.UpdateReservation(ctx, reservation); err != nil {
		err = fmt.Errorf("failed to update reservation %s: %w", id, err)
		if len(undo) == 0 {
			return Reservation{}, err
		}
		return Reservation{}, q.compensate(ctx, "cancel reservation", err, undo...)
	}

	eventType := EventReservationCompleted
	if status == ReservationCanceled {
		eventType = EventReservationCanceled
	}
	q.recordReservation(ctx, eventType, reservation)
	q.logger.InfoContext(ctx, "reservation settled",
		"reservation_id", id,
		"barcode", reservation.Barcode,
		"status", status,
	)

	return reservation, nil
}

func (q *ReservationQueue) recordReservation(ctx context.Context, eventType string, r Reservation) {
	q.record(ctx, r.Barcode, eventType, r.UpdatedAt, ReservationEvent{
		ReservationID: r.ID,
		Barcode:       r.Barcode,
		MemberID:      r.MemberID,
	})
	q.metrics.reservations.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventType)))
}
