// internal/catalog/service.go
package catalog

import (
	"context"
)

// Catalog is the persistence contract for book items.
// FindItem returns an errs.ErrNotFound failure with code ITEM_NOT_FOUND for an unknown barcode.
type Catalog interface {
	FindItem(ctx context.Context, barcode string) (BookItem, error)
	SaveItem(ctx context.Context, item BookItem) error
	CreateItem(ctx context.Context, item BookItem) error
	ListItems(ctx context.Context) ([]BookItem, error)
}

// Service defines the catalog management operations exposed over HTTP.
type Service interface {
	AddItem(ctx context.Context, req AddItemRequest) (*BookItem, error)
	GetItem(ctx context.Context, barcode string) (*BookItem, error)
	ListItems(ctx context.Context) ([]BookItem, error)
}

// AddItemRequest carries the fields needed to register a new copy.
type AddItemRequest struct {
	Barcode       string `json:"barcode"`
	Title         string `json:"title"`
	Format        string `json:"format"`
	Rack          string `json:"rack"`
	ReferenceOnly bool   `json:"reference_only"`
}
