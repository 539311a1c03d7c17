// internal/storage/memory/store.go

// Package memory keeps every circulation record in process memory.
//
// Store implements catalog.Catalog, membership.Directory and the circulation
// loan, fine and reservation stores over one lock, enforcing the same
// uniqueness rules as the postgres schema. Values are copied in and out, so a
// caller never holds a pointer into the store.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/membership"
)

type Store struct {
	mu sync.RWMutex

	items     []catalog.BookItem
	itemIndex map[string]int

	members     []membership.Member
	memberIndex map[string]int

	loans     []circulation.Loan
	loanIndex map[uuid.UUID]int

	fines     []circulation.Fine
	fineIndex map[uuid.UUID]int

	reservations     []circulation.Reservation
	reservationIndex map[uuid.UUID]int
}

var (
	_ catalog.Catalog              = (*Store)(nil)
	_ membership.Directory         = (*Store)(nil)
	_ circulation.LoanStore        = (*Store)(nil)
	_ circulation.FineStore        = (*Store)(nil)
	_ circulation.ReservationStore = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		itemIndex:        make(map[string]int),
		memberIndex:      make(map[string]int),
		loanIndex:        make(map[uuid.UUID]int),
		fineIndex:        make(map[uuid.UUID]int),
		reservationIndex: make(map[uuid.UUID]int),
	}
}

// Stores returns s wired as every collaborator of the circulation engine.
func (s *Store) Stores() circulation.Stores {
	return circulation.Stores{
		Catalog:      s,
		Directory:    s,
		Loans:        s,
		Fines:        s,
		Reservations: s,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneLoan(l circulation.Loan) circulation.Loan {
	l.ReturnedAt = cloneTime(l.ReturnedAt)
	return l
}

func cloneFine(f circulation.Fine) circulation.Fine {
	f.PaidAt = cloneTime(f.PaidAt)
	return f
}
