// internal/circulation/journal.go
package circulation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types appended to an item's history.
const (
	EventItemCheckedOut       = "ItemCheckedOut"
	EventItemReturned         = "ItemReturned"
	EventLoanRenewed          = "LoanRenewed"
	EventFineAssessed         = "FineAssessed"
	EventFineCollected        = "FineCollected"
	EventItemReserved         = "ItemReserved"
	EventReservationCanceled  = "ReservationCanceled"
	EventReservationCompleted = "ReservationCompleted"
)

// Event is a state change about to be appended to a barcode's history.
type Event struct {
	Type       string
	OccurredAt time.Time
	Data       json.RawMessage
}

// RecordedEvent is an event as read back from the journal.
type RecordedEvent struct {
	Version    int64           `json:"version"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Journal keeps the per-barcode history of circulation events.
// History returns events oldest first and an empty slice for an unknown barcode.
type Journal interface {
	Append(ctx context.Context, barcode string, events ...Event) error
	History(ctx context.Context, barcode string) ([]RecordedEvent, error)
}

type nopJournal struct{}

func (nopJournal) Append(context.Context, string, ...Event) error { return nil }

func (nopJournal) History(context.Context, string) ([]RecordedEvent, error) {
	return []RecordedEvent{}, nil
}

// ItemCheckedOutEvent is the payload of EventItemCheckedOut.
type ItemCheckedOutEvent struct {
	LoanID   uuid.UUID `json:"loan_id"`
	Barcode  string    `json:"barcode"`
	MemberID string    `json:"member_id"`
	DueAt    time.Time `json:"due_at"`
}

// ItemReturnedEvent is the payload of EventItemReturned.
type ItemReturnedEvent struct {
	LoanID      uuid.UUID `json:"loan_id"`
	Barcode     string    `json:"barcode"`
	MemberID    string    `json:"member_id"`
	ReturnedAt  time.Time `json:"returned_at"`
	DaysOverdue int64     `json:"days_overdue"`
}

// LoanRenewedEvent is the payload of EventLoanRenewed.
type LoanRenewedEvent struct {
	LoanID        uuid.UUID `json:"loan_id"`
	Barcode       string    `json:"barcode"`
	MemberID      string    `json:"member_id"`
	PreviousDueAt time.Time `json:"previous_due_at"`
	DueAt         time.Time `json:"due_at"`
}

// FineEvent is the payload of EventFineAssessed and EventFineCollected.
type FineEvent struct {
	FineID   uuid.UUID  `json:"fine_id"`
	LoanID   uuid.UUID  `json:"loan_id"`
	Barcode  string     `json:"barcode"`
	MemberID string     `json:"member_id"`
	Amount   Money      `json:"amount_minor"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}

// ReservationEvent is the payload of the reservation events.
type ReservationEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Barcode       string    `json:"barcode"`
	MemberID      string    `json:"member_id"`
}

func newEvent(eventType string, at time.Time, payload any) (Event, error) {
	data, err := jsonAPI.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return Event{Type: eventType, OccurredAt: at, Data: data}, nil
}

// DecodeEvent unmarshals a recorded event's payload into v.
func DecodeEvent(e RecordedEvent, v any) error {
	return jsonAPI.Unmarshal(e.Data, v)
}
