// internal/storage/postgres/fines.go
package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateFine(ctx context.Context, fine circulation.Fine) error {
	ds := dialect.Insert(tableFines).Rows(goqu.Record{
		"id":           fine.ID,
		"loan_id":      fine.LoanID,
		"barcode":      fine.Barcode,
		"member_id":    fine.MemberID,
		"amount_minor": int64(fine.Amount),
		"created_at":   fine.CreatedAt,
		"paid_at":      fine.PaidAt,
	})
	return s.insert(ctx, ds, "fine for loan "+fine.LoanID.String())
}

func (s *Store) UpdateFine(ctx context.Context, fine circulation.Fine) error {
	ds := dialect.Update(tableFines).
		Set(goqu.Record{"paid_at": fine.PaidAt}).
		Where(goqu.C("id").Eq(fine.ID))

	return s.update(ctx, ds, errs.NewNotFoundError(errs.CodeFineNotFound, fine.ID.String()), "fine "+fine.ID.String())
}

func (s *Store) FindFine(ctx context.Context, id uuid.UUID) (circulation.Fine, error) {
	var fine circulation.Fine
	err := s.get(ctx, &fine, dialect.From(tableFines).Where(goqu.C("id").Eq(id)))
	if isNoRows(err) {
		return circulation.Fine{}, errs.NewNotFoundError(errs.CodeFineNotFound, id.String())
	}
	if err != nil {
		return circulation.Fine{}, fmt.Errorf("failed to find fine %s: %w", id, err)
	}
	return fine, nil
}

func (s *Store) FindFinesByMember(ctx context.Context, memberID string) ([]circulation.Fine, error) {
	return s.listFines(ctx, goqu.C("member_id").Eq(memberID))
}

func (s *Store) FindFinesByBarcode(ctx context.Context, barcode string) ([]circulation.Fine, error) {
	return s.listFines(ctx, goqu.C("barcode").Eq(barcode))
}

func (s *Store) ListFines(ctx context.Context) ([]circulation.Fine, error) {
	return s.listFines(ctx)
}

func (s *Store) listFines(ctx context.Context, where ...goqu.Expression) ([]circulation.Fine, error) {
	fines := []circulation.Fine{}
	ds := dialect.From(tableFines).Where(where...).Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	if err := s.selectAll(ctx, &fines, ds); err != nil {
		return nil, fmt.Errorf("failed to list fines: %w", err)
	}
	return fines, nil
}
