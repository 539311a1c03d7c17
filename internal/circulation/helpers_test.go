package circulation_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/membership"
	"libralend/internal/storage/memory"
)

var t0 = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *memory.Store
	journal *memory.Journal
	clock   *fakeClock
	svc     circulation.Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...circulation.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWithStores(t, store, store.Stores(), opts...)
}

// newFixtureWithStores builds a service over stores while seeding and
// inspecting state through store directly.
func newFixtureWithStores(t *testing.T, store *memory.Store, stores circulation.Stores, opts ...circulation.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   store,
		journal: memory.NewJournal(),
		clock:   &fakeClock{now: t0},
	}
	base := []circulation.Option{
		circulation.WithClock(f.clock.Now),
		circulation.WithJournal(f.journal),
		circulation.WithLogger(discardLogger()),
	}
	f.svc = circulation.NewService(stores, append(base, opts...)...)
	return f
}

func (f *fixture) addItem(t *testing.T, barcode string) {
	t.Helper()
	f.addItemWith(t, catalog.BookItem{Barcode: barcode, Title: "Title " + barcode})
}

func (f *fixture) addItemWith(t *testing.T, item catalog.BookItem) {
	t.Helper()
	if item.Status == "" {
		item.Status = catalog.StatusAvailable
	}
	item.CreatedAt, item.UpdatedAt = t0, t0
	require.NoError(t, f.store.CreateItem(context.Background(), item))
}

func (f *fixture) addMember(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.CreateMember(context.Background(), membership.Member{
		ID:            id,
		Name:          "Member " + id,
		AccountStatus: membership.StatusActive,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}))
}

func (f *fixture) item(t *testing.T, barcode string) catalog.BookItem {
	t.Helper()
	item, err := f.store.FindItem(context.Background(), barcode)
	require.NoError(t, err)
	return item
}

func (f *fixture) member(t *testing.T, id string) membership.Member {
	t.Helper()
	m, err := f.store.FindMember(context.Background(), id)
	require.NoError(t, err)
	return m
}
