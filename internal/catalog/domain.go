// internal/catalog/domain.go
package catalog

import (
	"fmt"
	"time"

	"libralend/internal/errs"
)

// ItemStatus is the availability state of a single physical copy.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "AVAILABLE"
	StatusLoaned    ItemStatus = "LOANED"
	StatusReserved  ItemStatus = "RESERVED"
	StatusLost      ItemStatus = "LOST"
)

// Validate rejects values outside the four known statuses.
func (s ItemStatus) Validate() error {
	switch s {
	case StatusAvailable, StatusLoaned, StatusReserved, StatusLost:
		return nil
	}
	return errs.NewValidationError("status", fmt.Sprintf("%q is not a valid item status", string(s)))
}

func (s ItemStatus) String() string { return string(s) }

// BookItem represents one physical copy of a book, identified by its barcode.
type BookItem struct {
	Barcode       string     `json:"barcode" db:"barcode"`
	Title         string     `json:"title" db:"title"`
	Format        string     `json:"format,omitempty" db:"format"`
	Rack          string     `json:"rack,omitempty" db:"rack"`
	ReferenceOnly bool       `json:"reference_only" db:"reference_only"`
	Status        ItemStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CanBeLoaned reports whether a checkout may move this copy to LOANED.
// Reference-only copies never can.
func (i BookItem) CanBeLoaned() bool {
	return !i.ReferenceOnly && i.Status == StatusAvailable
}
