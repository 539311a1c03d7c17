// internal/clients/circulation_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"libralend/internal/circulation"
)

func (c *Client) Checkout(ctx context.Context, barcode, memberID string) (*circulation.Loan, error) {
	var loan circulation.Loan
	req := circulation.LendingRequest{Barcode: barcode, MemberID: memberID}
	if err := c.do(ctx, http.MethodPost, "/checkout", nil, req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// Return closes the open loan on barcode. A nil at uses the server's clock.
func (c *Client) Return(ctx context.Context, barcode string, at *time.Time) (*circulation.ReturnReceipt, error) {
	var receipt circulation.ReturnReceipt
	req := circulation.LendingRequest{Barcode: barcode, ReturnedAt: at}
	if err := c.do(ctx, http.MethodPost, "/return", nil, req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Renew(ctx context.Context, barcode, memberID string) (*circulation.Loan, error) {
	var loan circulation.Loan
	req := circulation.LendingRequest{Barcode: barcode, MemberID: memberID}
	if err := c.do(ctx, http.MethodPost, "/renew", nil, req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *Client) Reserve(ctx context.Context, barcode, memberID string) (*circulation.Reservation, error) {
	var r circulation.Reservation
	req := circulation.LendingRequest{Barcode: barcode, MemberID: memberID}
	if err := c.do(ctx, http.MethodPost, "/reservations", nil, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CancelReservation(ctx context.Context, id uuid.UUID) (*circulation.Reservation, error) {
	return c.settleReservation(ctx, id, "cancel")
}

func (c *Client) CompleteReservation(ctx context.Context, id uuid.UUID) (*circulation.Reservation, error) {
	return c.settleReservation(ctx, id, "complete")
}

func (c *Client) settleReservation(ctx context.Context, id uuid.UUID, action string) (*circulation.Reservation, error) {
	var r circulation.Reservation
	if err := c.do(ctx, http.MethodPost, "/reservations/"+id.String()+"/"+action, nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CollectFine(ctx context.Context, id uuid.UUID) (*circulation.Fine, error) {
	var fine circulation.Fine
	if err := c.do(ctx, http.MethodPost, "/fines/"+id.String()+"/collect", nil, nil, &fine); err != nil {
		return nil, err
	}
	return &fine, nil
}

// CollectItemFine pays the oldest unpaid fine on barcode.
func (c *Client) CollectItemFine(ctx context.Context, barcode string) (*circulation.Fine, error) {
	var fine circulation.Fine
	if err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(barcode)+"/fines/pay", nil, nil, &fine); err != nil {
		return nil, err
	}
	return &fine, nil
}

func (c *Client) Loans(ctx context.Context) ([]circulation.Loan, error) {
	var loans []circulation.Loan
	if err := c.do(ctx, http.MethodGet, "/loans", nil, nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *Client) Fines(ctx context.Context, unpaidOnly bool) ([]circulation.Fine, error) {
	var fines []circulation.Fine
	query := url.Values{"unpaid": {strconv.FormatBool(unpaidOnly)}}
	if err := c.do(ctx, http.MethodGet, "/fines", query, nil, &fines); err != nil {
		return nil, err
	}
	return fines, nil
}

func (c *Client) Reservations(ctx context.Context) ([]circulation.Reservation, error) {
	var reservations []circulation.Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations", nil, nil, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

// WaitingReservation returns the hold queued on barcode.
func (c *Client) WaitingReservation(ctx context.Context, barcode string) (*circulation.Reservation, error) {
	var r circulation.Reservation
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(barcode)+"/reservation", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) MemberLoans(ctx context.Context, memberID string) ([]circulation.Loan, error) {
	var loans []circulation.Loan
	if err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(memberID)+"/loans", nil, nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *Client) MemberFines(ctx context.Context, memberID string, unpaidOnly bool) ([]circulation.Fine, error) {
	var fines []circulation.Fine
	query := url.Values{"unpaid": {strconv.FormatBool(unpaidOnly)}}
	if err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(memberID)+"/fines", query, nil, &fines); err != nil {
		return nil, err
	}
	return fines, nil
}

func (c *Client) History(ctx context.Context, barcode string) ([]circulation.RecordedEvent, error) {
	var history []circulation.RecordedEvent
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(barcode)+"/history", nil, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) OverdueLoans(ctx context.Context, asOf time.Time) ([]circulation.OverdueLoan, error) {
	var report []circulation.OverdueLoan
	query := url.Values{"as_of": {asOf.UTC().Format(time.RFC3339Nano)}}
	if err := c.do(ctx, http.MethodGet, "/loans/overdue", query, nil, &report); err != nil {
		return nil, err
	}
	return report, nil
}
