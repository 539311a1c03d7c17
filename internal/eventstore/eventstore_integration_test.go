//go:build integration

package eventstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"libralend/internal/eventstore"
)

func startPostgres(ctx context.Context, tb testing.TB) (*postgres.PostgresContainer, *sqlx.DB) {
	tb.Helper()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start postgres: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("failed to get connection string: %v", err)
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		tb.Fatalf("failed to connect: %v", err)
	}
	if _, err := db.ExecContext(ctx, eventstore.Schema); err != nil {
		tb.Fatalf("failed to create schema: %v", err)
	}
	return container, db
}

type testEvent struct {
	Message string `json:"message"`
}

func newEvents(n int) []eventstore.Event {
	events := make([]eventstore.Event, 0, n)
	for i := 0; i < n; i++ {
		data, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events = append(events, eventstore.Event{
			EventType: "TestEvent",
			EventData: data,
			Metadata:  map[string]string{"trace_id": "abc"},
		})
	}
	return events
}

type EventStoreIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *sqlx.DB
	store     *eventstore.EventStore
}

func (s *EventStoreIntegrationTestSuite) SetupSuite() {
	s.container, s.db = startPostgres(context.Background(), s.T())
	s.store = eventstore.NewEventStore(s.db)
}

func (s *EventStoreIntegrationTestSuite) SetupTest() {
	_, err := s.db.Exec("TRUNCATE TABLE events")
	s.Require().NoError(err)
}

func (s *EventStoreIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *EventStoreIntegrationTestSuite) TestAppendAndLoad() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendEvents(ctx, "item:B001", "item", 0, newEvents(2)))
	s.Require().NoError(s.store.AppendEvents(ctx, "item:B001", "item", 2, newEvents(1)))

	version, err := s.store.GetCurrentVersion(ctx, "item:B001")
	s.Require().NoError(err)
	s.Equal(3, version)

	events, err := s.store.LoadEvents(ctx, "item:B001", 1, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	for i, e := range events {
		s.Equal(i+1, e.Version)
		s.Equal("TestEvent", e.EventType)
		s.Equal("abc", e.Metadata["trace_id"])
	}

	window, err := s.store.LoadEvents(ctx, "item:B001", 2, 2)
	s.Require().NoError(err)
	s.Require().Len(window, 1)
	s.Equal(2, window[0].Version)
}

func (s *EventStoreIntegrationTestSuite) TestVersionMismatch() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendEvents(ctx, "item:B001", "item", 0, newEvents(1)))

	err := s.store.AppendEvents(ctx, "item:B001", "item", 0, newEvents(1))
	s.ErrorIs(err, eventstore.ErrConcurrencyConflict)

	err = s.store.AppendEvents(ctx, "item:B001", "item", -1, newEvents(1))
	s.ErrorIs(err, eventstore.ErrInvalidVersion)
}

func (s *EventStoreIntegrationTestSuite) TestConcurrentAppendsOneWins() {
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.AppendEvents(ctx, "item:B002", "item", 0, newEvents(1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	version, err := s.store.GetCurrentVersion(ctx, "item:B002")
	s.Require().NoError(err)
	s.Equal(1, version)
}

func (s *EventStoreIntegrationTestSuite) TestEmptyStream() {
	version, err := s.store.GetCurrentVersion(context.Background(), "item:none")
	s.Require().NoError(err)
	s.Equal(0, version)

	events, err := s.store.LoadEvents(context.Background(), "item:none", 1, 0)
	s.Require().NoError(err)
	s.Empty(events)
}

func TestEventStoreIntegration(t *testing.T) {
	suite.Run(t, new(EventStoreIntegrationTestSuite))
}

func BenchmarkAppendEvents(b *testing.B) {
	ctx := context.Background()
	container, db := startPostgres(ctx, b)
	defer container.Terminate(ctx)
	defer db.Close()
	store := eventstore.NewEventStore(db)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := store.AppendEvents(ctx, fmt.Sprintf("item:bench-%d", i), "item", 0, newEvents(1)); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	ctx := context.Background()
	container, db := startPostgres(ctx, b)
	defer container.Terminate(ctx)
	defer db.Close()
	store := eventstore.NewEventStore(db)

	for i := 0; i < 10; i++ {
		if err := store.AppendEvents(ctx, "item:bench", "item", i, newEvents(1)); err != nil {
			b.Fatalf("failed to set up events: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := store.LoadEvents(ctx, "item:bench", 1, 0); err != nil {
			b.Fatalf("LoadEvents failed: %v", err)
		}
	}
}
