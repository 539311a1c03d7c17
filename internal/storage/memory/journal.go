// internal/storage/memory/journal.go
package memory

import (
	"context"
	"sync"

	"libralend/internal/circulation"
)

// Journal keeps each barcode's event history in memory.
type Journal struct {
	mu      sync.RWMutex
	streams map[string][]circulation.RecordedEvent
}

var _ circulation.Journal = (*Journal)(nil)

func NewJournal() *Journal {
	return &Journal{streams: make(map[string][]circulation.RecordedEvent)}
}

func (j *Journal) Append(_ context.Context, barcode string, events ...circulation.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stream := j.streams[barcode]
	for _, e := range events {
		data := make([]byte, len(e.Data))
		copy(data, e.Data)
		stream = append(stream, circulation.RecordedEvent{
			Version:    int64(len(stream) + 1),
			Type:       e.Type,
			Data:       data,
			OccurredAt: e.OccurredAt,
		})
	}
	j.streams[barcode] = stream
	return nil
}

func (j *Journal) History(_ context.Context, barcode string) ([]circulation.RecordedEvent, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stream := j.streams[barcode]
	history := make([]circulation.RecordedEvent, len(stream))
	copy(history, stream)
	return history, nil
}
