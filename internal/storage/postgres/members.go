// internal/storage/postgres/members.go
package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"libralend/internal/errs"
	"libralend/internal/membership"
)

func (s *Store) FindMember(ctx context.Context, id string) (membership.Member, error) {
	var member membership.Member
	err := s.get(ctx, &member, dialect.From(tableMembers).Where(goqu.C("id").Eq(id)))
	if isNoRows(err) {
		return membership.Member{}, errs.NewNotFoundError(errs.CodeMemberNotFound, id)
	}
	if err != nil {
		return membership.Member{}, fmt.Errorf("failed to find member %s: %w", id, err)
	}
	return member, nil
}

func (s *Store) SaveMember(ctx context.Context, member membership.Member) error {
	ds := dialect.Update(tableMembers).
		Set(goqu.Record{
			"name":            member.Name,
			"email":           member.Email,
			"open_loan_count": member.OpenLoanCount,
			"account_status":  string(member.AccountStatus),
			"updated_at":      member.UpdatedAt,
		}).
		Where(goqu.C("id").Eq(member.ID))

	return s.update(ctx, ds, errs.NewNotFoundError(errs.CodeMemberNotFound, member.ID), "member "+member.ID)
}

func (s *Store) CreateMember(ctx context.Context, member membership.Member) error {
	ds := dialect.Insert(tableMembers).Rows(goqu.Record{
		"id":              member.ID,
		"name":            member.Name,
		"email":           member.Email,
		"open_loan_count": member.OpenLoanCount,
		"account_status":  string(member.AccountStatus),
		"created_at":      member.CreatedAt,
		"updated_at":      member.UpdatedAt,
	})
	return s.insert(ctx, ds, "member "+member.ID)
}

func (s *Store) ListMembers(ctx context.Context) ([]membership.Member, error) {
	members := []membership.Member{}
	if err := s.selectAll(ctx, &members, dialect.From(tableMembers).Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
