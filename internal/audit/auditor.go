// internal/audit/auditor.go

// Package audit checks the circulation invariants against stored state.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/membership"
)

// Source is the read side the auditor needs.
type Source interface {
	ListItems(ctx context.Context) ([]catalog.BookItem, error)
	ListMembers(ctx context.Context) ([]membership.Member, error)
	FindOpenLoans(ctx context.Context) ([]circulation.Loan, error)
	FindWaitingReservations(ctx context.Context) ([]circulation.Reservation, error)
}

// Snapshot is the state one audit run evaluates.
type Snapshot struct {
	Items      []catalog.BookItem
	Members    []membership.Member
	OpenLoans  []circulation.Loan
	Waiting    []circulation.Reservation
	CapturedAt time.Time
}

// Violation is one broken invariant.
type Violation struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Check, v.Subject, v.Message)
}

// Check evaluates one invariant over a snapshot.
type Check struct {
	Name     string
	Evaluate func(Snapshot) []Violation
}

// Report is the outcome of one audit run.
type Report struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Items      int           `json:"items"`
	Members    int           `json:"members"`
	OpenLoans  int           `json:"open_loans"`
	Waiting    int           `json:"waiting_reservations"`
	Violations []Violation   `json:"violations"`
}

// Healthy reports whether the run found no violations.
func (r Report) Healthy() bool { return len(r.Violations) == 0 }

// Auditor runs a fixed set of checks against a Source.
type Auditor struct {
	source Source
	checks []Check
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditor creates an Auditor running DefaultChecks.
func NewAuditor(source Source, logger *slog.Logger) *Auditor {
	return &Auditor{
		source: source,
		checks: DefaultChecks(),
		tracer: otel.Tracer("libralend/audit"),
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// Run captures a snapshot and evaluates every check against it. Reading the
// sources is not atomic, so a run concurrent with live traffic may report a
// transient violation; quiesced state is reported exactly.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	ctx, span := a.tracer.Start(ctx, "audit.run")
	defer span.End()

	started := a.now()
	snap, err := a.capture(ctx)
	if err != nil {
		span.RecordError(err)
		return Report{}, err
	}

	report := Report{
		StartedAt:  started,
		Items:      len(snap.Items),
		Members:    len(snap.Members),
		OpenLoans:  len(snap.OpenLoans),
		Waiting:    len(snap.Waiting),
		Violations: []Violation{},
	}
	for _, check := range a.checks {
		span.AddEvent("evaluating_" + check.Name)
		report.Violations = append(report.Violations, check.Evaluate(snap)...)
	}
	report.Duration = a.now().Sub(started)

	span.SetAttributes(
		attribute.Bool("healthy", report.Healthy()),
		attribute.Int("violations", len(report.Violations)),
	)
	for _, v := range report.Violations {
		a.logger.ErrorContext(ctx, "invariant violated", "check", v.Check, "subject", v.Subject, "message", v.Message)
	}

	return report, nil
}

func (a *Auditor) capture(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Items, err = a.source.ListItems(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to list items: %w", err)
	}
	if snap.Members, err = a.source.ListMembers(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to list members: %w", err)
	}
	if snap.OpenLoans, err = a.source.FindOpenLoans(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to list open loans: %w", err)
	}
	if snap.Waiting, err = a.source.FindWaitingReservations(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to list waiting reservations: %w", err)
	}
	snap.CapturedAt = a.now()
	return snap, nil
}
