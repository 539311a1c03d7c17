// internal/storage/postgres/loans.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"libralend/internal/circulation"
	"libralend/internal/errs"
)

func (s *Store) CreateLoan(ctx context.Context, loan circulation.Loan) error {
	ds := dialect.Insert(tableLoans).Rows(goqu.Record{
		"id":          loan.ID,
		"barcode":     loan.Barcode,
		"member_id":   loan.MemberID,
		"created_at":  loan.CreatedAt,
		"due_at":      loan.DueAt,
		"returned_at": loan.ReturnedAt,
	})
	return s.insert(ctx, ds, "loan for item "+loan.Barcode)
}

func (s *Store) UpdateLoan(ctx context.Context, loan circulation.Loan) error {
	ds := dialect.Update(tableLoans).
		Set(goqu.Record{
			"due_at":      loan.DueAt,
			"returned_at": loan.ReturnedAt,
		}).
		Where(goqu.C("id").Eq(loan.ID))

	return s.update(ctx, ds, errs.NewNotFoundError(errs.CodeLoanNotFound, loan.ID.String()), "loan "+loan.ID.String())
}

func (s *Store) FindLoan(ctx context.Context, id uuid.UUID) (circulation.Loan, error) {
	var loan circulation.Loan
	err := s.get(ctx, &loan, dialect.From(tableLoans).Where(goqu.C("id").Eq(id)))
	if isNoRows(err) {
		return circulation.Loan{}, errs.NewNotFoundError(errs.CodeLoanNotFound, id.String())
	}
	if err != nil {
		return circulation.Loan{}, fmt.Errorf("failed to find loan %s: %w", id, err)
	}
	return loan, nil
}

func (s *Store) FindOpenLoanByBarcode(ctx context.Context, barcode string) (circulation.Loan, error) {
	var loan circulation.Loan
	err := s.get(ctx, &loan, dialect.From(tableLoans).Where(
		goqu.C("barcode").Eq(barcode),
		goqu.C("returned_at").IsNull(),
	))
	if isNoRows(err) {
		return circulation.Loan{}, errs.NewNotFoundError(errs.CodeLendingNotFound, barcode)
	}
	if err != nil {
		return circulation.Loan{}, fmt.Errorf("failed to find open loan for item %s: %w", barcode, err)
	}
	return loan, nil
}

func (s *Store) FindLoansByMember(ctx context.Context, memberID string) ([]circulation.Loan, error) {
	return s.listLoans(ctx, goqu.C("member_id").Eq(memberID))
}

func (s *Store) FindOpenLoans(ctx context.Context) ([]circulation.Loan, error) {
	return s.listLoans(ctx, goqu.C("returned_at").IsNull())
}

func (s *Store) FindOverdueLoans(ctx context.Context, asOf time.Time) ([]circulation.Loan, error) {
	return s.listLoans(ctx, goqu.C("returned_at").IsNull(), goqu.C("due_at").Lt(asOf))
}

func (s *Store) ListLoans(ctx context.Context) ([]circulation.Loan, error) {
	return s.listLoans(ctx)
}

func (s *Store) listLoans(ctx context.Context, where ...goqu.Expression) ([]circulation.Loan, error) {
	loans := []circulation.Loan{}
	ds := dialect.From(tableLoans).Where(where...).Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())
	if err := s.selectAll(ctx, &loans, ds); err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}
