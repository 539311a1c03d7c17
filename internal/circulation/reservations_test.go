package circulation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func TestReserveAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "B002")
	f.addMember(t, "M002")

	reservation, err := f.svc.Reserve(ctx, "B002", "M002")
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationWaiting, reservation.Status)
	assert.Equal(t, catalog.StatusReserved, f.item(t, "B002").Status)

	canceled, err := f.svc.CancelReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationCanceled, canceled.Status)
	assert.Equal(t, catalog.StatusAvailable, f.item(t, "B002").Status)

	_, err = f.svc.CancelReservation(ctx, reservation.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, errs.CodeNotWaiting, errs.CodeOf(err))
	assert.Equal(t, catalog.StatusAvailable, f.item(t, "B002").Status)

	stored, err := f.svc.Reservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationCanceled, stored.Status)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("one waiting reservation per item", func(t *testing.T) {
		f := newFixture(t)
		f.addItem(t, "B002")
		f.addMember(t, "M001")
		f.addMember(t, "M002")

		_, err := f.svc.Reserve(ctx, "B002", "M002")
		require.NoError(t, err)

		_, err = f.svc.Reserve(ctx, "B002", "M001")
		assert.ErrorIs(t, err, errs.ErrConflict)
		assert.Equal(t, errs.CodeAlreadyReserved, errs.CodeOf(err))
	})

	t.Run("loaned item", func(t *testing.T) {
		f := newFixture(t)
		f.addItem(t, "B001")
		f.addMember(t, "M001")
		f.addMember(t, "M002")

		_, err := f.svc.Checkout(ctx, "B001", "M001")
		require.NoError(t, err)

		_, err = f.svc.Reserve(ctx, "B001", "M002")
		assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err))
		assert.Equal(t, catalog.StatusLoaned, f.item(t, "B001").Status)
	})

	t.Run("reserved item blocks checkout by others", func(t *testing.T) {
		f := newFixture(t)
		f.addItem(t, "B002")
		f.addMember(t, "M001")
		f.addMember(t, "M002")

		_, err := f.svc.Reserve(ctx, "B002", "M002")
		require.NoError(t, err)

		_, err = f.svc.Checkout(ctx, "B002", "M001")
		assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err))
		_, err = f.svc.Checkout(ctx, "B002", "M002")
		assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err))
	})

	t.Run("unknown item and member", func(t *testing.T) {
		f := newFixture(t)
		f.addItem(t, "B002")
		f.addMember(t, "M002")

		_, err := f.svc.Reserve(ctx, "B404", "M002")
		assert.Equal(t, errs.CodeItemNotFound, errs.CodeOf(err))

		_, err = f.svc.Reserve(ctx, "B002", "M404")
		assert.Equal(t, errs.CodeMemberNotFound, errs.CodeOf(err))
		assert.Equal(t, catalog.StatusAvailable, f.item(t, "B002").Status)
	})

	t.Run("reference-only items can be reserved", func(t *testing.T) {
		f := newFixture(t)
		f.addItemWith(t, catalog.BookItem{Barcode: "R001", ReferenceOnly: true})
		f.addMember(t, "M001")

		_, err := f.svc.Reserve(ctx, "R001", "M001")
		assert.NoError(t, err)
	})

	t.Run("missing arguments", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Reserve(ctx, "", "M001")
		assert.ErrorIs(t, err, errs.ErrValidation)
		_, err = f.svc.CancelReservation(ctx, uuid.Nil)
		assert.ErrorIs(t, err, errs.ErrValidation)
		_, err = f.svc.CompleteReservation(ctx, uuid.New())
		assert.Equal(t, errs.CodeReservationNotFound, errs.CodeOf(err))
	})
}

func TestCompleteReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "B002")
	f.addMember(t, "M001")
	f.addMember(t, "M002")

	reservation, err := f.svc.Reserve(ctx, "B002", "M002")
	require.NoError(t, err)

	completed, err := f.svc.CompleteReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationCompleted, completed.Status)
	assert.Equal(t, catalog.StatusReserved, f.item(t, "B002").Status)

	_, err = f.svc.CancelReservation(ctx, reservation.ID)
	assert.Equal(t, errs.CodeNotWaiting, errs.CodeOf(err))

	_, err = f.svc.Checkout(ctx, "B002", "M001")
	assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err), "only the reserving member may pick up the hold")

	loan, err := f.svc.Checkout(ctx, "B002", "M002")
	require.NoError(t, err)
	assert.Equal(t, "M002", loan.MemberID)
	assert.Equal(t, catalog.StatusLoaned, f.item(t, "B002").Status)

	mine, err := f.svc.ReservationsByMember(ctx, "M002")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, circulation.ReservationCompleted, mine[0].Status)
}

func TestCompletedReservationHoldsItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "B003")
	f.addMember(t, "M001")
	f.addMember(t, "M002")

	reservation, err := f.svc.Reserve(ctx, "B003", "M002")
	require.NoError(t, err)
	_, err = f.svc.CompleteReservation(ctx, reservation.ID)
	require.NoError(t, err)

	// Nothing but a checkout by the completing member releases the copy.
	_, err = f.svc.CancelReservation(ctx, reservation.ID)
	assert.Equal(t, errs.CodeNotWaiting, errs.CodeOf(err))
	_, err = f.svc.CompleteReservation(ctx, reservation.ID)
	assert.Equal(t, errs.CodeNotWaiting, errs.CodeOf(err))
	_, err = f.svc.Reserve(ctx, "B003", "M001")
	assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err))
	_, err = f.svc.Checkout(ctx, "B003", "M001")
	assert.Equal(t, errs.CodeItemUnavailable, errs.CodeOf(err))
	_, err = f.svc.ReturnItem(ctx, "B003")
	assert.Equal(t, errs.CodeNoActiveLending, errs.CodeOf(err))

	_, err = f.svc.WaitingReservation(ctx, "B003")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, catalog.StatusReserved, f.item(t, "B003").Status)

	_, err = f.svc.Checkout(ctx, "B003", "M002")
	require.NoError(t, err)
	_, err = f.svc.ReturnItem(ctx, "B003")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusAvailable, f.item(t, "B003").Status)

	_, err = f.svc.Reserve(ctx, "B003", "M001")
	require.NoError(t, err)
}
