// internal/storage/memory/members.go
package memory

import (
	"context"

	"libralend/internal/errs"
	"libralend/internal/membership"
)

func (s *Store) FindMember(_ context.Context, id string) (membership.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.memberIndex[id]
	if !ok {
		return membership.Member{}, errs.NewNotFoundError(errs.CodeMemberNotFound, id)
	}
	return s.members[i], nil
}

func (s *Store) SaveMember(_ context.Context, member membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.memberIndex[member.ID]
	if !ok {
		return errs.NewNotFoundError(errs.CodeMemberNotFound, member.ID)
	}
	s.members[i] = member
	return nil
}

func (s *Store) CreateMember(_ context.Context, member membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memberIndex[member.ID]; ok {
		return errs.NewConflictError(errs.CodeAlreadyExists, "member %q already exists", member.ID)
	}
	s.memberIndex[member.ID] = len(s.members)
	s.members = append(s.members, member)
	return nil
}

func (s *Store) ListMembers(_ context.Context) ([]membership.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]membership.Member, len(s.members))
	copy(members, s.members)
	return members, nil
}
