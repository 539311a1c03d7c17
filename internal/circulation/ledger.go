// internal/circulation/ledger.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"libralend/internal/catalog"
	"libralend/internal/errs"
	"libralend/internal/membership"
)

// Ledger opens, closes and renews loans and settles fines.
//
// Every mutation touching a barcode runs inside that barcode's critical
// section; mutations touching a member's open-loan counter also hold the
// member's section, always taken after the item's.
type Ledger struct {
	*engine
}

// NewLedger creates a Ledger over stores. Pass WithLocks to share its locks
// with a ReservationQueue over the same stores.
func NewLedger(stores Stores, opts ...Option) *Ledger {
	return &Ledger{engine: newEngine(stores, opts)}
}

// Checkout lends the copy identified by barcode to memberID.
//
// The item is marked LOANED first and the member's slot claimed second, the
// claim re-checking eligibility; the loan record is written last. A failure
// after the item transition undoes every step already taken.
func (l *Ledger) Checkout(ctx context.Context, barcode, memberID string) (loan Loan, err error) {
	ctx, span := l.startSpan(ctx, "circulation.checkout",
		attribute.String("item.barcode", barcode),
		attribute.String("member.id", memberID),
	)
	defer func() { endSpan(span, err) }()

	if err := requireID("barcode", barcode); err != nil {
		return Loan{}, err
	}
	if err := requireID("member_id", memberID); err != nil {
		return Loan{}, err
	}

	unlock := l.locks.LockAll(itemKey(barcode), memberKey(memberID))
	defer unlock()

	item, err := l.tracker.Item(ctx, barcode)
	if err != nil {
		return Loan{}, err
	}
	member, err := l.gate.Member(ctx, memberID)
	if err != nil {
		return Loan{}, err
	}
	if err := l.checkLendable(ctx, item, memberID); err != nil {
		return Loan{}, err
	}
	if err := membership.Eligibility(member); err != nil {
		return Loan{}, err
	}

	now := l.now().UTC()
	loan = Loan{
		ID:        uuid.New(),
		Barcode:   barcode,
		MemberID:  memberID,
		CreatedAt: now,
		DueAt:     now.Add(l.loanPeriod),
	}

	previous, err := l.tracker.SetStatus(ctx, barcode, catalog.StatusLoaned)
	if err != nil {
		return Loan{}, fmt.Errorf("failed to mark item %s loaned: %w", barcode, err)
	}
	restoreItem := l.restoreItem(barcode, previous)

	if _, err := l.gate.IncrementOpenLoans(ctx, memberID); err != nil {
		return Loan{}, l.compensate(ctx, "checkout", err, restoreItem)
	}
	releaseSlot := compensation{"release member slot", func(ctx context.Context) error {
		_, err := l.gate.DecrementOpenLoans(ctx, memberID)
		return err
	}}

	if err := l.loans.CreateLoan(ctx, loan); err != nil {
		return Loan{}, l.compensate(ctx, "checkout", fmt.Errorf("failed to create loan: %w", err), releaseSlot, restoreItem)
	}

	l.record(ctx, barcode, EventItemCheckedOut, now, ItemCheckedOutEvent{
		LoanID:   loan.ID,
		Barcode:  barcode,
		MemberID: memberID,
		DueAt:    loan.DueAt,
	})
	l.metrics.checkouts.Add(ctx, 1)
	l.logger.InfoContext(ctx, "item checked out",
		"barcode", barcode,
		"member_id", memberID,
		"loan_id", loan.ID,
		"due_at", loan.DueAt,
	)

	return loan, nil
}

// checkLendable rejects reference-only copies and copies that are not
// AVAILABLE. A RESERVED copy is lendable to the member whose latest
// reservation on it was completed.
func (l *Ledger) checkLendable(ctx context.Context, item catalog.BookItem, memberID string) error {
	if item.ReferenceOnly {
		return errs.NewConflictError(errs.CodeItemUnavailable, "item %q is reference only", item.Barcode)
	}

	if item.CanBeLoaned() {
		return nil
	}
	if item.Status == catalog.StatusReserved {
		held, err := l.holdsCompletedReservation(ctx, item.Barcode, memberID)
		if err != nil {
			return err
		}
		if held {
			return nil
		}
	}

	return errs.NewConflictError(errs.CodeItemUnavailable, "item %q is %s", item.Barcode, item.Status)
}

func (l *Ledger) holdsCompletedReservation(ctx context.Context, barcode, memberID string) (bool, error) {
	reservations, err := l.reservations.FindReservationsByBarcode(ctx, barcode)
	if err != nil {
		return false, fmt.Errorf("failed to find reservations for item %s: %w", barcode, err)
	}
	if len(reservations) == 0 {
		return false, nil
	}

	latest := reservations[len(reservations)-1]
	return latest.Status == ReservationCompleted && latest.MemberID == memberID, nil
}

// ReturnItem closes the open loan on barcode as of now.
func (l *Ledger) ReturnItem(ctx context.Context, barcode string) (ReturnReceipt, error) {
	return l.ReturnItemAt(ctx, barcode, l.now())
}

// ReturnItemAt closes the open loan on barcode as of at. A return strictly
// after the due time is charged by the fine policy; a zero amount creates no
// fine. The item becomes AVAILABLE and the borrower's slot is released.
func (l *Ledger) ReturnItemAt(ctx context.Context, barcode string, at time.Time) (receipt ReturnReceipt, err error) {
	ctx, span := l.startSpan(ctx, "circulation.return",
		attribute.String("item.barcode", barcode),
	)
	defer func() { endSpan(span, err) }()

	if err := requireID("barcode", barcode); err != nil {
		return ReturnReceipt{}, err
	}
	if at.IsZero() {
		return ReturnReceipt{}, errs.NewValueIsRequiredError("returned_at")
	}
	at = at.UTC()

	unlockItem := l.locks.Lock(itemKey(barcode))
	defer unlockItem()

	loan, err := l.loans.FindOpenLoanByBarcode(ctx, barcode)
	if errors.Is(err, errs.ErrNotFound) {
		return ReturnReceipt{}, errs.NewConflictError(errs.CodeNoActiveLending, "item %q has no open loan", barcode)
	}
	if err != nil {
		return ReturnReceipt{}, fmt.Errorf("failed to find open loan for item %s: %w", barcode, err)
	}

	unlockMember := l.locks.Lock(memberKey(loan.MemberID))
	defer unlockMember()

	closed := loan
	closed.ReturnedAt = timePtr(at)

	var fine *Fine
	if loan.IsOverdueAt(at) {
		if amount := l.policy.CalculateFine(loan, at); amount > 0 {
			fine = &Fine{
				ID:        uuid.New(),
				LoanID:    loan.ID,
				Barcode:   barcode,
				MemberID:  loan.MemberID,
				Amount:    amount,
				CreatedAt: at,
			}
		}
	}

	if err := l.loans.UpdateLoan(ctx, closed); err != nil {
		return ReturnReceipt{}, fmt.Errorf("failed to close loan %s: %w", loan.ID, err)
	}
	reopenLoan := compensation{"reopen loan", func(ctx context.Context) error {
		return l.loans.UpdateLoan(ctx, loan)
	}}

	previous, err := l.tracker.SetStatus(ctx, barcode, catalog.StatusAvailable)
	if err != nil {
		return ReturnReceipt{}, l.compensate(ctx, "return", fmt.Errorf("failed to release item %s: %w", barcode, err), reopenLoan)
	}
	restoreItem := l.restoreItem(barcode, previous)

	if _, err := l.gate.DecrementOpenLoans(ctx, loan.MemberID); err != nil {
		return ReturnReceipt{}, l.compensate(ctx, "return", err, restoreItem, reopenLoan)
	}
	reclaimSlot := compensation{"reclaim member slot", func(ctx context.Context) error {
		_, err := l.gate.ReclaimOpenLoan(ctx, loan.MemberID)
		return err
	}}

	if fine != nil {
		if err := l.fines.CreateFine(ctx, *fine); err != nil {
			return ReturnReceipt{}, l.compensate(ctx, "return", fmt.Errorf("failed to create fine: %w", err), reclaimSlot, restoreItem, reopenLoan)
		}
	}

	daysOverdue := DaysOverdue(loan, at)
	l.record(ctx, barcode, EventItemReturned, at, ItemReturnedEvent{
		LoanID:      loan.ID,
		Barcode:     barcode,
		MemberID:    loan.MemberID,
		ReturnedAt:  at,
		DaysOverdue: daysOverdue,
	})
	l.metrics.returns.Add(ctx, 1)

	if fine != nil {
		l.record(ctx, barcode, EventFineAssessed, at, FineEvent{
			FineID:   fine.ID,
			LoanID:   loan.ID,
			Barcode:  barcode,
			MemberID: loan.MemberID,
			Amount:   fine.Amount,
		})
		l.metrics.finesAssessed.Add(ctx, 1)
		l.metrics.fineAmount.Add(ctx, int64(fine.Amount))
		l.logger.InfoContext(ctx, "fine assessed",
			"barcode", barcode,
			"member_id", loan.MemberID,
			"fine_id", fine.ID,
			"amount", fine.Amount.String(),
			"days_overdue", daysOverdue,
		)
	}
	l.logger.InfoContext(ctx, "item returned",
		"barcode", barcode,
		"member_id", loan.MemberID,
		"loan_id", loan.ID,
		"overdue", fine != nil,
	)

	return ReturnReceipt{Loan: closed, Fine: fine}, nil
}

// Renew resets the due date of memberID's open loan on barcode to now plus
// the loan period. It does not extend from the previous due date.
func (l *Ledger) Renew(ctx context.Context, barcode, memberID string) (loan Loan, err error) {
	ctx, span := l.startSpan(ctx, "circulation.renew",
		attribute.String("item.barcode", barcode),
		attribute.String("member.id", memberID),
	)
	defer func() { endSpan(span, err) }()

	if err := requireID("barcode", barcode); err != nil {
		return Loan{}, err
	}
	if err := requireID("member_id", memberID); err != nil {
		return Loan{}, err
	}

	unlock := l.locks.Lock(itemKey(barcode))
	defer unlock()

	current, err := l.loans.FindOpenLoanByBarcode(ctx, barcode)
	if errors.Is(err, errs.ErrNotFound) {
		return Loan{}, errs.NewNotFoundError(errs.CodeLendingNotFound, barcode)
	}
	if err != nil {
		return Loan{}, fmt.Errorf("failed to find open loan for item %s: %w", barcode, err)
	}
	if current.MemberID != memberID {
		return Loan{}, errs.NewOwnershipMismatchError(barcode, memberID)
	}

	now := l.now().UTC()
	loan = current
	loan.DueAt = now.Add(l.loanPeriod)

	if err := l.loans.UpdateLoan(ctx, loan); err != nil {
		return Loan{}, fmt.Errorf("failed to renew loan %s: %w", loan.ID, err)
	}

	l.record(ctx, barcode, EventLoanRenewed, now, LoanRenewedEvent{
		LoanID:        loan.ID,
		Barcode:       barcode,
		MemberID:      memberID,
		PreviousDueAt: current.DueAt,
		DueAt:         loan.DueAt,
	})
	l.metrics.renewals.Add(ctx, 1)
	l.logger.InfoContext(ctx, "loan renewed", "barcode", barcode, "member_id", memberID, "due_at", loan.DueAt)

	return loan, nil
}

// CollectFine marks a fine paid.
func (l *Ledger) CollectFine(ctx context.Context, id uuid.UUID) (fine Fine, err error) {
	ctx, span := l.startSpan(ctx, "circulation.collect_fine",
		attribute.String("fine.id", id.String()),
	)
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return Fine{}, errs.NewValueIsRequiredError("fine_id")
	}

	fine, err = l.fines.FindFine(ctx, id)
	if err != nil {
		return Fine{}, err
	}

	// The barcode's section orders the journal entry with the item's other events.
	unlock := l.locks.LockAll(itemKey(fine.Barcode), fineKey(id.String()))
	defer unlock()

	fine, err = l.fines.FindFine(ctx, id)
	if err != nil {
		return Fine{}, err
	}
	return l.collect(ctx, fine)
}

// CollectItemFine marks the oldest unpaid fine on barcode paid. It fails with
// FINE_NOT_FOUND when every fine on the copy is settled.
func (l *Ledger) CollectItemFine(ctx context.Context, barcode string) (fine Fine, err error) {
	ctx, span := l.startSpan(ctx, "circulation.collect_item_fine",
		attribute.String("item.barcode", barcode),
	)
	defer func() { endSpan(span, err) }()

	if err := requireID("barcode", barcode); err != nil {
		return Fine{}, err
	}

	unlockItem := l.locks.Lock(itemKey(barcode))
	defer unlockItem()

	fines, err := l.fines.FindFinesByBarcode(ctx, barcode)
	if err != nil {
		return Fine{}, fmt.Errorf("failed to find fines for item %s: %w", barcode, err)
	}
	unpaid := unpaidFines(fines)
	if len(unpaid) == 0 {
		return Fine{}, errs.NewNotFoundError(errs.CodeFineNotFound, barcode)
	}

	unlockFine := l.locks.Lock(fineKey(unpaid[0].ID.String()))
	defer unlockFine()

	fine, err = l.fines.FindFine(ctx, unpaid[0].ID)
	if err != nil {
		return Fine{}, err
	}
	return l.collect(ctx, fine)
}

// collect pays fine. The caller holds the item and fine sections.
func (l *Ledger) collect(ctx context.Context, fine Fine) (Fine, error) {
	if fine.IsPaid() {
		return Fine{}, errs.NewConflictError(errs.CodeFineAlreadyPaid, "fine %q was paid at %s", fine.ID, fine.PaidAt.Format(time.RFC3339))
	}

	now := l.now().UTC()
	fine.PaidAt = timePtr(now)
	if err := l.fines.UpdateFine(ctx, fine); err != nil {
		return Fine{}, fmt.Errorf("failed to collect fine %s: %w", fine.ID, err)
	}

	l.record(ctx, fine.Barcode, EventFineCollected, now, FineEvent{
		FineID:   fine.ID,
		LoanID:   fine.LoanID,
		Barcode:  fine.Barcode,
		MemberID: fine.MemberID,
		Amount:   fine.Amount,
		PaidAt:   fine.PaidAt,
	})
	l.logger.InfoContext(ctx, "fine collected", "fine_id", fine.ID, "member_id", fine.MemberID, "amount", fine.Amount.String())

	return fine, nil
}

// SetAccountStatus blacklists or reactivates a member inside the member's
// critical section, so it cannot interleave with a checkout's eligibility check.
func (l *Ledger) SetAccountStatus(ctx context.Context, memberID string, status membership.AccountStatus) (membership.Member, error) {
	if err := requireID("member_id", memberID); err != nil {
		return membership.Member{}, err
	}

	unlock := l.locks.Lock(memberKey(memberID))
	defer unlock()

	member, err := l.gate.SetAccountStatus(ctx, memberID, status)
	if err != nil {
		return membership.Member{}, err
	}

	l.logger.InfoContext(ctx, "member account status changed", "member_id", memberID, "status", status)
	return member, nil
}

// compensation is one undo step of a partially applied operation.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

func (e *engine) restoreItem(barcode string, status catalog.ItemStatus) compensation {
	return compensation{"restore item status", func(ctx context.Context) error {
		_, err := e.tracker.SetStatus(ctx, barcode, status)
		return err
	}}
}

// compensate runs steps in order and returns cause joined with every step that failed.
// Steps run even if the caller's context is already done.
func (e *engine) compensate(ctx context.Context, operation string, cause error, steps ...compensation) error {
	e.metrics.compensations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	e.logger.WarnContext(ctx, "compensating failed operation", "operation", operation, "error", cause)

	undoCtx := context.WithoutCancel(ctx)
	failures := []error{cause}
	for _, step := range steps {
		if err := step.undo(undoCtx); err != nil {
			e.logger.ErrorContext(ctx, "compensation step failed",
				"operation", operation,
				"step", step.name,
				"error", err,
			)
			failures = append(failures, fmt.Errorf("failed to %s: %w", step.name, err))
		}
	}

	if len(failures) == 1 {
		return cause
	}
	return errors.Join(failures...)
}

// record appends one event to barcode's history. A journal failure is logged
// and does not fail the operation that already committed.
func (e *engine) record(ctx context.Context, barcode, eventType string, at time.Time, payload any) {
	event, err := newEvent(eventType, at, payload)
	if err == nil {
		err = e.journal.Append(ctx, barcode, event)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "failed to journal event", "barcode", barcode, "event", eventType, "error", err)
	}
}
