// internal/eventstore/eventstore.go

// Package eventstore is an append-only event log on PostgreSQL with optimistic
// concurrency per stream.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Schema creates the events table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	stream_id   TEXT        NOT NULL,
	stream_type TEXT        NOT NULL,
	event_type  TEXT        NOT NULL,
	event_data  JSONB       NOT NULL,
	metadata    JSONB,
	version     INT         NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (stream_id, version)
);
`

// Event is one entry of a stream.
type Event struct {
	ID         int64             `json:"id" db:"id"`
	StreamID   string            `json:"stream_id" db:"stream_id"`
	StreamType string            `json:"stream_type" db:"stream_type"`
	EventType  string            `json:"event_type" db:"event_type"`
	EventData  json.RawMessage   `json:"event_data" db:"event_data"`
	Metadata   map[string]string `json:"metadata" db:"-"`
	Version    int               `json:"version" db:"version"`
	OccurredAt time.Time         `json:"occurred_at" db:"occurred_at"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

type eventRow struct {
	Event
	RawMetadata []byte `db:"metadata"`
}

// EventStore appends to and reads from the events table.
type EventStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("libralend/eventstore"),
	}
}

// AppendEvents atomically appends events to a stream whose current version
// must equal expectedVersion. A mismatch, or a concurrent append that wins
// the race, yields ErrConcurrencyConflict.
func (es *EventStore) AppendEvents(ctx context.Context, streamID, streamType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("stream.id", streamID),
			attribute.String("stream.type", streamType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	tx, err := es.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	if err := tx.GetContext(ctx, &currentVersion, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE stream_id = $1
	`, streamID); err != nil {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO events (stream_id, stream_type, event_type, event_data, metadata, version, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, event := range events {
		version := expectedVersion + i + 1
		metadata, err := jsonAPI.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of event %d: %w", i, err)
		}
		occurredAt := event.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = now
		}

		var eventID int64
		err = stmt.QueryRowxContext(ctx,
			streamID,
			streamType,
			event.EventType,
			string(event.EventData),
			string(metadata),
			version,
			occurredAt.UTC(),
			now,
		).Scan(&eventID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	if err := tx.Commit(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents retrieves a stream's events from fromVersion up to toVersion
// (unbounded when toVersion is zero), oldest first.
func (es *EventStore) LoadEvents(ctx context.Context, streamID string, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("stream.id", streamID),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	query := `
		SELECT id, stream_id, stream_type, event_type, event_data, metadata, version, occurred_at, created_at
		FROM events
		WHERE stream_id = $1
		AND version >= $2
	`
	args := []any{streamID, fromVersion}

	if toVersion > 0 {
		query += " AND version <= $3"
		args = append(args, toVersion)
	}
	query += " ORDER BY version ASC"

	var rows []eventRow
	if err := es.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := row.Event
		if len(row.RawMetadata) > 0 {
			if err := jsonAPI.Unmarshal(row.RawMetadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata of event %d: %w", row.ID, err)
			}
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version of a stream, zero if it is empty.
func (es *EventStore) GetCurrentVersion(ctx context.Context, streamID string) (int, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(
			attribute.String("stream.id", streamID),
		),
	)
	defer span.End()

	var version int
	err := es.db.GetContext(ctx, &version, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE stream_id = $1
	`, streamID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query version: %w", err)
	}

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}
