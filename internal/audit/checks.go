// internal/audit/checks.go
package audit

import (
	"fmt"
	"sort"

	"libralend/internal/catalog"
)

const (
	CheckSingleOpenLoan     = "single-open-loan"
	CheckOpenLoanCount      = "open-loan-count"
	CheckSingleWaiting      = "single-waiting-reservation"
	CheckLoanedItemStatus   = "loaned-item-status"
	CheckReservedItemStatus = "reserved-item-status"
)

// DefaultChecks returns the checks for every circulation invariant.
func DefaultChecks() []Check {
	return []Check{
		{Name: CheckSingleOpenLoan, Evaluate: singleOpenLoan},
		{Name: CheckOpenLoanCount, Evaluate: openLoanCount},
		{Name: CheckSingleWaiting, Evaluate: singleWaiting},
		{Name: CheckLoanedItemStatus, Evaluate: loanedItemStatus},
		{Name: CheckReservedItemStatus, Evaluate: reservedItemStatus},
	}
}

func singleOpenLoan(s Snapshot) []Violation {
	counts := make(map[string]int)
	for _, l := range s.OpenLoans {
		counts[l.Barcode]++
	}
	return overCount(CheckSingleOpenLoan, counts, "open loans")
}

func singleWaiting(s Snapshot) []Violation {
	counts := make(map[string]int)
	for _, r := range s.Waiting {
		counts[r.Barcode]++
	}
	return overCount(CheckSingleWaiting, counts, "waiting reservations")
}

func overCount(check string, counts map[string]int, what string) []Violation {
	var violations []Violation
	for _, barcode := range sortedKeys(counts) {
		if n := counts[barcode]; n > 1 {
			violations = append(violations, Violation{
				Check:   check,
				Subject: barcode,
				Message: fmt.Sprintf("%d %s", n, what),
			})
		}
	}
	return violations
}

func openLoanCount(s Snapshot) []Violation {
	open := make(map[string]int)
	for _, l := range s.OpenLoans {
		open[l.MemberID]++
	}

	var violations []Violation
	for _, m := range s.Members {
		if m.OpenLoanCount != open[m.ID] {
			violations = append(violations, Violation{
				Check:   CheckOpenLoanCount,
				Subject: m.ID,
				Message: fmt.Sprintf("counter is %d but member has %d open loans", m.OpenLoanCount, open[m.ID]),
			})
		}
		delete(open, m.ID)
	}
	for _, id := range sortedKeys(open) {
		violations = append(violations, Violation{
			Check:   CheckOpenLoanCount,
			Subject: id,
			Message: fmt.Sprintf("%d open loans held by an unknown member", open[id]),
		})
	}
	return violations
}

func loanedItemStatus(s Snapshot) []Violation {
	status := itemStatuses(s.Items)

	var violations []Violation
	for _, l := range s.OpenLoans {
		if got, ok := status[l.Barcode]; !ok || got != catalog.StatusLoaned {
			violations = append(violations, Violation{
				Check:   CheckLoanedItemStatus,
				Subject: l.Barcode,
				Message: fmt.Sprintf("open loan %s but item is %q", l.ID, got),
			})
		}
	}
	return violations
}

func reservedItemStatus(s Snapshot) []Violation {
	status := itemStatuses(s.Items)

	var violations []Violation
	for _, r := range s.Waiting {
		if got, ok := status[r.Barcode]; !ok || got != catalog.StatusReserved {
			violations = append(violations, Violation{
				Check:   CheckReservedItemStatus,
				Subject: r.Barcode,
				Message: fmt.Sprintf("waiting reservation %s but item is %q", r.ID, got),
			})
		}
	}
	return violations
}

func itemStatuses(items []catalog.BookItem) map[string]catalog.ItemStatus {
	status := make(map[string]catalog.ItemStatus, len(items))
	for _, it := range items {
		status[it.Barcode] = it.Status
	}
	return status
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
