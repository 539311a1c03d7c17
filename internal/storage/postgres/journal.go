// internal/storage/postgres/journal.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/circulation"
	"libralend/internal/eventstore"
)

const streamTypeItem = "item"

// Journal keeps item histories as event streams, one stream per barcode.
// Appends expect the stream's current version, so a concurrent writer on the
// same barcode fails with eventstore.ErrConcurrencyConflict.
type Journal struct {
	events *eventstore.EventStore
}

var _ circulation.Journal = (*Journal)(nil)

func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{events: eventstore.NewEventStore(db)}
}

func (j *Journal) Append(ctx context.Context, barcode string, events ...circulation.Event) error {
	stream := streamID(barcode)

	version, err := j.events.GetCurrentVersion(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to read version of %s: %w", stream, err)
	}

	metadata := map[string]string{}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
		metadata["span_id"] = sc.SpanID().String()
	}

	batch := make([]eventstore.Event, 0, len(events))
	for _, e := range events {
		batch = append(batch, eventstore.Event{
			EventType:  e.Type,
			EventData:  e.Data,
			Metadata:   metadata,
			OccurredAt: e.OccurredAt,
		})
	}

	if err := j.events.AppendEvents(ctx, stream, streamTypeItem, version, batch); err != nil {
		return fmt.Errorf("failed to append to %s: %w", stream, err)
	}
	return nil
}

func (j *Journal) History(ctx context.Context, barcode string) ([]circulation.RecordedEvent, error) {
	events, err := j.events.LoadEvents(ctx, streamID(barcode), 1, 0)
	if err != nil {
		return nil, err
	}

	history := make([]circulation.RecordedEvent, 0, len(events))
	for _, e := range events {
		history = append(history, circulation.RecordedEvent{
			Version:    int64(e.Version),
			Type:       e.EventType,
			Data:       e.EventData,
			OccurredAt: e.OccurredAt,
		})
	}
	return history, nil
}

func streamID(barcode string) string {
	return streamTypeItem + ":" + barcode
}
