package circulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/membership"
	"libralend/internal/storage/memory"
)

var errInjected = errors.New("injected failure")

type failingLoans struct {
	*memory.Store
}

func (failingLoans) CreateLoan(context.Context, circulation.Loan) error { return errInjected }

type failingFines struct {
	*memory.Store
}

func (failingFines) CreateFine(context.Context, circulation.Fine) error { return errInjected }

type failingReservations struct {
	*memory.Store
}

func (failingReservations) CreateReservation(context.Context, circulation.Reservation) error {
	return errInjected
}

// failingCatalog refuses to save an item into one status.
type failingCatalog struct {
	*memory.Store
	refuse catalog.ItemStatus
}

func (c failingCatalog) SaveItem(ctx context.Context, item catalog.BookItem) error {
	if item.Status == c.refuse {
		return errInjected
	}
	return c.Store.SaveItem(ctx, item)
}

type failingDirectory struct {
	*memory.Store
}

func (failingDirectory) SaveMember(context.Context, membership.Member) error { return errInjected }

func TestCheckoutCompensation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := store.Stores()
	stores.Loans = failingLoans{store}

	f := newFixtureWithStores(t, store, stores)
	f.addItem(t, "B001")
	f.addMember(t, "M001")

	_, err := f.svc.Checkout(ctx, "B001", "M001")
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, catalog.StatusAvailable, f.item(t, "B001").Status)
	assert.Equal(t, 0, f.member(t, "M001").OpenLoanCount)

	history, err := f.svc.History(ctx, "B001")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCheckoutCompensationFailureIsJoined(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := store.Stores()
	stores.Directory = failingDirectory{store}
	stores.Catalog = failingCatalog{Store: store, refuse: catalog.StatusAvailable}

	f := newFixtureWithStores(t, store, stores)
	f.addItem(t, "B001")
	f.addMember(t, "M001")

	_, err := f.svc.Checkout(ctx, "B001", "M001")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "failed to save member M001")
	assert.Contains(t, err.Error(), "failed to restore item status")

	// The undo step failed, so the item is left where the checkout put it.
	assert.Equal(t, catalog.StatusLoaned, f.item(t, "B001").Status)
}

func TestReturnCompensation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := store.Stores()
	stores.Fines = failingFines{store}

	f := newFixtureWithStores(t, store, stores)
	f.addItem(t, "B001")
	f.addMember(t, "M001")

	loan, err := f.svc.Checkout(ctx, "B001", "M001")
	require.NoError(t, err)

	_, err = f.svc.ReturnItemAt(ctx, "B001", loan.DueAt.Add(3*24*time.Hour))
	require.ErrorIs(t, err, errInjected)

	open, err := f.svc.OpenLoan(ctx, "B001")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, open.ID)
	assert.Nil(t, open.ReturnedAt)
	assert.Equal(t, catalog.StatusLoaned, f.item(t, "B001").Status)
	assert.Equal(t, 1, f.member(t, "M001").OpenLoanCount)

	// An on-time return needs no fine and goes through.
	receipt, err := f.svc.ReturnItemAt(ctx, "B001", loan.DueAt)
	require.NoError(t, err)
	assert.Nil(t, receipt.Fine)
	assert.Equal(t, 0, f.member(t, "M001").OpenLoanCount)
}

func TestReserveCompensation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := store.Stores()
	stores.Reservations = failingReservations{store}

	f := newFixtureWithStores(t, store, stores)
	f.addItem(t, "B002")
	f.addMember(t, "M002")

	_, err := f.svc.Reserve(ctx, "B002", "M002")
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, catalog.StatusAvailable, f.item(t, "B002").Status)
}

func TestCancelReservationFailureKeepsHold(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newFixtureWithStores(t, store, store.Stores())
	f.addItem(t, "B002")
	f.addMember(t, "M002")

	reservation, err := f.svc.Reserve(ctx, "B002", "M002")
	require.NoError(t, err)

	// A second service over the same data whose catalog cannot release the item.
	stores := store.Stores()
	stores.Catalog = failingCatalog{Store: store, refuse: catalog.StatusAvailable}
	broken := newFixtureWithStores(t, store, stores)

	_, err = broken.svc.CancelReservation(ctx, reservation.ID)
	require.ErrorIs(t, err, errInjected)

	stored, err := f.svc.Reservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationWaiting, stored.Status)
	assert.Equal(t, catalog.StatusReserved, f.item(t, "B002").Status)
}
