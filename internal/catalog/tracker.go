// internal/catalog/tracker.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"libralend/internal/errs"
)

// Tracker owns a book item's availability state.
//
// It is a pure state holder: it knows nothing about loans or reservations and
// rejects nothing except unknown barcodes and unknown status values. Callers
// serialize access per barcode and treat a status change as the only way to
// claim exclusive use of an item.
type Tracker struct {
	catalog Catalog
	now     func() time.Time
}

// NewTracker creates a Tracker over the given catalog.
func NewTracker(c Catalog) *Tracker {
	return &Tracker{catalog: c, now: time.Now}
}

// Item returns the current state of a copy.
func (t *Tracker) Item(ctx context.Context, barcode string) (BookItem, error) {
	return t.catalog.FindItem(ctx, barcode)
}

// SetStatus moves the copy to status and returns the status it had before.
func (t *Tracker) SetStatus(ctx context.Context, barcode string, status ItemStatus) (ItemStatus, error) {
	if barcode == "" {
		return "", errs.NewValueIsRequiredError("barcode")
	}
	if err := status.Validate(); err != nil {
		return "", err
	}

	item, err := t.catalog.FindItem(ctx, barcode)
	if err != nil {
		return "", err
	}

	previous := item.Status
	item.Status = status
	item.UpdatedAt = t.now().UTC()

	if err := t.catalog.SaveItem(ctx, item); err != nil {
		return "", fmt.Errorf("failed to save status of item %s: %w", barcode, err)
	}
	return previous, nil
}
