// internal/storage/memory/catalog.go
package memory

import (
	"context"

	"libralend/internal/catalog"
	"libralend/internal/errs"
)

func (s *Store) FindItem(_ context.Context, barcode string) (catalog.BookItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.itemIndex[barcode]
	if !ok {
		return catalog.BookItem{}, errs.NewNotFoundError(errs.CodeItemNotFound, barcode)
	}
	return s.items[i], nil
}

func (s *Store) SaveItem(_ context.Context, item catalog.BookItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.itemIndex[item.Barcode]
	if !ok {
		return errs.NewNotFoundError(errs.CodeItemNotFound, item.Barcode)
	}
	s.items[i] = item
	return nil
}

func (s *Store) CreateItem(_ context.Context, item catalog.BookItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.itemIndex[item.Barcode]; ok {
		return errs.NewConflictError(errs.CodeAlreadyExists, "item %q already exists", item.Barcode)
	}
	s.itemIndex[item.Barcode] = len(s.items)
	s.items = append(s.items, item)
	return nil
}

func (s *Store) ListItems(_ context.Context) ([]catalog.BookItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]catalog.BookItem, len(s.items))
	copy(items, s.items)
	return items, nil
}
