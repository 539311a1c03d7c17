package circulation_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/audit"
	"libralend/internal/catalog"
	"libralend/internal/errs"
	"libralend/internal/membership"
)

func TestConcurrentCheckoutPreventsDoubleBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "B001")

	const members = 10
	for i := 0; i < members; i++ {
		f.addMember(t, fmt.Sprintf("M%03d", i))
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(memberID string) {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, "B001", memberID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errs.HasCode(err, errs.CodeItemUnavailable):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected checkout failure: %v", err)
			}
		}(fmt.Sprintf("M%03d", i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load(), "only one concurrent checkout should succeed")
	assert.Equal(t, int32(members-1), conflicts.Load())
	assert.Equal(t, catalog.StatusLoaned, f.item(t, "B001").Status)

	open, err := f.store.FindOpenLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestConcurrentCheckoutRespectsLoanLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMember(t, "M001")

	const items = 12
	for i := 0; i < items; i++ {
		f.addItem(t, fmt.Sprintf("B%03d", i))
	}

	var (
		wg         sync.WaitGroup
		succeeded  atomic.Int32
		ineligible atomic.Int32
	)
	for i := 0; i < items; i++ {
		wg.Add(1)
		go func(barcode string) {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, barcode, "M001")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errs.HasCode(err, errs.CodeMemberIneligible):
				ineligible.Add(1)
			default:
				t.Errorf("unexpected checkout failure: %v", err)
			}
		}(fmt.Sprintf("B%03d", i))
	}
	wg.Wait()

	assert.Equal(t, int32(membership.MaxOpenLoans), succeeded.Load())
	assert.Equal(t, int32(items-membership.MaxOpenLoans), ineligible.Load())
	assert.Equal(t, membership.MaxOpenLoans, f.member(t, "M001").OpenLoanCount)

	report, err := audit.NewAuditor(f.store, discardLogger()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy(), "violations: %v", report.Violations)
}

func TestConcurrentMixedTraffic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	barcodes := []string{"B001", "B002", "B003"}
	memberIDs := []string{"M001", "M002", "M003", "M004"}
	for _, b := range barcodes {
		f.addItem(t, b)
	}
	for _, m := range memberIDs {
		f.addMember(t, m)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				barcode := barcodes[(w+i)%len(barcodes)]
				memberID := memberIDs[(w*i)%len(memberIDs)]
				switch (w + i) % 4 {
				case 0:
					_, _ = f.svc.Checkout(ctx, barcode, memberID)
				case 1:
					_, _ = f.svc.ReturnItem(ctx, barcode)
				case 2:
					if r, err := f.svc.Reserve(ctx, barcode, memberID); err == nil && i%2 == 0 {
						_, _ = f.svc.CancelReservation(ctx, r.ID)
					}
				case 3:
					_, _ = f.svc.Renew(ctx, barcode, memberID)
				}
			}
		}(w)
	}
	wg.Wait()

	report, err := audit.NewAuditor(f.store, discardLogger()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy(), "violations: %v", report.Violations)
}
