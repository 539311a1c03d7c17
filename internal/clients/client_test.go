package clients_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/clients"
	"libralend/internal/errs"
	"libralend/internal/membership"
	"libralend/internal/server"
	"libralend/internal/storage/memory"
)

func newClient(t *testing.T) *clients.Client {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(server.NewRouter(server.Dependencies{
		Catalog:     catalog.NewService(store),
		Members:     membership.NewService(store, 100),
		Circulation: circulation.NewService(store.Stores(), circulation.WithJournal(memory.NewJournal()), circulation.WithLogger(logger)),
		Logger:      logger,
	}))
	t.Cleanup(srv.Close)
	return clients.NewClient(srv.URL+"/", clients.WithHTTPClient(srv.Client()))
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	item, err := c.AddItem(ctx, catalog.AddItemRequest{Barcode: "B001", Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusAvailable, item.Status)

	_, err = c.AddItem(ctx, catalog.AddItemRequest{Barcode: "B002", Title: "Emma"})
	require.NoError(t, err)
	items, err := c.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	member, err := c.RegisterMember(ctx, membership.RegisterRequest{ID: "M001", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, membership.StatusActive, member.AccountStatus)

	loan, err := c.Checkout(ctx, "B001", "M001")
	require.NoError(t, err)

	renewed, err := c.Renew(ctx, "B001", "M001")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, renewed.ID)

	overdue, err := c.OverdueLoans(ctx, renewed.DueAt.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, int64(2), overdue[0].DaysOverdue)

	justLate, err := c.OverdueLoans(ctx, renewed.DueAt.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Len(t, justLate, 1, "as_of keeps sub-second precision")

	late := renewed.DueAt.Add(3 * 24 * time.Hour)
	receipt, err := c.Return(ctx, "B001", &late)
	require.NoError(t, err)
	require.NotNil(t, receipt.Fine)

	unpaid, err := c.MemberFines(ctx, "M001", true)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)

	paid, err := c.CollectFine(ctx, receipt.Fine.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid())

	_, err = c.CollectItemFine(ctx, "B001")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	fines, err := c.Fines(ctx, false)
	require.NoError(t, err)
	assert.Len(t, fines, 1)
	openFines, err := c.Fines(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, openFines)

	reservation, err := c.Reserve(ctx, "B002", "M001")
	require.NoError(t, err)
	waiting, err := c.WaitingReservation(ctx, "B002")
	require.NoError(t, err)
	assert.Equal(t, reservation.ID, waiting.ID)

	completed, err := c.CompleteReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReservationCompleted, completed.Status)

	loans, err := c.MemberLoans(ctx, "M001")
	require.NoError(t, err)
	assert.Len(t, loans, 1)

	allLoans, err := c.Loans(ctx)
	require.NoError(t, err)
	assert.Len(t, allLoans, 1)

	reservations, err := c.Reservations(ctx)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, circulation.ReservationCompleted, reservations[0].Status)

	members, err := c.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "M001", members[0].ID)

	history, err := c.History(ctx, "B001")
	require.NoError(t, err)
	assert.NotEmpty(t, history)

	blacklisted, err := c.SetAccountStatus(ctx, "M001", membership.StatusBlacklisted)
	require.NoError(t, err)
	assert.Equal(t, membership.StatusBlacklisted, blacklisted.AccountStatus)

	got, err := c.GetMember(ctx, "M001")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusBlacklisted, got.AccountStatus)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.GetItem(ctx, "B404")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, errs.CodeItemNotFound, apiErr.Code)

	_, err = c.CancelReservation(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = c.Return(ctx, "B404", nil)
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = c.Checkout(ctx, "", "M001")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := clients.NewClient(srv.URL).ListItems(context.Background())

	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
