// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"libralend/internal/errs"
)

// service implements the Service interface.
type service struct {
	catalog Catalog
	now     func() time.Time
}

// NewService creates a new catalog service instance.
func NewService(c Catalog) Service {
	return &service{
		catalog: c,
		now:     time.Now,
	}
}

// AddItem registers a new copy in AVAILABLE state.
func (s *service) AddItem(ctx context.Context, req AddItemRequest) (*BookItem, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return nil, errs.NewValueIsRequiredError("barcode")
	}

	now := s.now().UTC()
	item := BookItem{
		Barcode:       barcode,
		Title:         strings.TrimSpace(req.Title),
		Format:        req.Format,
		Rack:          req.Rack,
		ReferenceOnly: req.ReferenceOnly,
		Status:        StatusAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.catalog.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add item %s: %w", barcode, err)
	}

	return &item, nil
}

// GetItem retrieves an item by its barcode.
func (s *service) GetItem(ctx context.Context, barcode string) (*BookItem, error) {
	if barcode == "" {
		return nil, errs.NewValueIsRequiredError("barcode")
	}

	item, err := s.catalog.FindItem(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns every registered copy.
func (s *service) ListItems(ctx context.Context) ([]BookItem, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
