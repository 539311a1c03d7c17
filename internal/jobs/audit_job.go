// internal/jobs/audit_job.go
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"libralend/internal/audit"
)

// Auditor runs one invariant audit.
type Auditor interface {
	Run(ctx context.Context) (audit.Report, error)
}

// AuditJob periodically checks the circulation invariants against stored state.
type AuditJob struct {
	auditor  Auditor
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewAuditJob(auditor Auditor, schedule string, logger *slog.Logger) *AuditJob {
	return &AuditJob{
		auditor:  auditor,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "audit_job"),
	}
}

func (j *AuditJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("audit job started", "schedule", j.schedule)
	return nil
}

// Run performs one audit and reports whether it came back clean.
func (j *AuditJob) Run(ctx context.Context) bool {
	report, err := j.auditor.Run(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "audit failed", "error", err)
		return false
	}

	if !report.Healthy() {
		j.logger.ErrorContext(ctx, "audit found violations", "violations", len(report.Violations))
		return false
	}
	j.logger.InfoContext(ctx, "audit clean",
		"items", report.Items,
		"members", report.Members,
		"open_loans", report.OpenLoans,
		"waiting_reservations", report.Waiting,
	)
	return true
}

func (j *AuditJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("audit job stopped")
}
