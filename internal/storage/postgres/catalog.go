// internal/storage/postgres/catalog.go
package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"libralend/internal/catalog"
	"libralend/internal/errs"
)

func (s *Store) FindItem(ctx context.Context, barcode string) (catalog.BookItem, error) {
	var item catalog.BookItem
	err := s.get(ctx, &item, dialect.From(tableItems).Where(goqu.C("barcode").Eq(barcode)))
	if isNoRows(err) {
		return catalog.BookItem{}, errs.NewNotFoundError(errs.CodeItemNotFound, barcode)
	}
	if err != nil {
		return catalog.BookItem{}, fmt.Errorf("failed to find item %s: %w", barcode, err)
	}
	return item, nil
}

func (s *Store) SaveItem(ctx context.Context, item catalog.BookItem) error {
	ds := dialect.Update(tableItems).
		Set(goqu.Record{
			"title":          item.Title,
			"format":         item.Format,
			"rack":           item.Rack,
			"reference_only": item.ReferenceOnly,
			"status":         string(item.Status),
			"updated_at":     item.UpdatedAt,
		}).
		Where(goqu.C("barcode").Eq(item.Barcode))

	return s.update(ctx, ds, errs.NewNotFoundError(errs.CodeItemNotFound, item.Barcode), "item "+item.Barcode)
}

func (s *Store) CreateItem(ctx context.Context, item catalog.BookItem) error {
	ds := dialect.Insert(tableItems).Rows(goqu.Record{
		"barcode":        item.Barcode,
		"title":          item.Title,
		"format":         item.Format,
		"rack":           item.Rack,
		"reference_only": item.ReferenceOnly,
		"status":         string(item.Status),
		"created_at":     item.CreatedAt,
		"updated_at":     item.UpdatedAt,
	})
	return s.insert(ctx, ds, "item "+item.Barcode)
}

func (s *Store) ListItems(ctx context.Context) ([]catalog.BookItem, error) {
	items := []catalog.BookItem{}
	if err := s.selectAll(ctx, &items, dialect.From(tableItems).Order(goqu.C("created_at").Asc(), goqu.C("barcode").Asc())); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
