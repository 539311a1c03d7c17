// internal/jobs/overdue_sweep_job.go
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"libralend/internal/circulation"
)

// OverdueReporter is the read operation the sweep runs.
type OverdueReporter interface {
	OverdueLoans(ctx context.Context, asOf time.Time) ([]circulation.OverdueLoan, error)
}

// OverdueSweepJob periodically logs every overdue loan with the fine it
// would carry if returned now.
type OverdueSweepJob struct {
	reporter OverdueReporter
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time
}

func NewOverdueSweepJob(reporter OverdueReporter, schedule string, logger *slog.Logger) *OverdueSweepJob {
	return &OverdueSweepJob{
		reporter: reporter,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "overdue_sweep_job"),
		now:      time.Now,
	}
}

func (j *OverdueSweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("overdue sweep job started", "schedule", j.schedule)
	return nil
}

// Run performs one sweep and returns the number of overdue loans found.
func (j *OverdueSweepJob) Run(ctx context.Context) int {
	report, err := j.reporter.OverdueLoans(ctx, j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "overdue sweep failed", "error", err)
		return 0
	}

	var total circulation.Money
	for _, o := range report {
		total += o.ProjectedFine
		j.logger.InfoContext(ctx, "loan overdue",
			"barcode", o.Loan.Barcode,
			"member_id", o.Loan.MemberID,
			"due_at", o.Loan.DueAt,
			"days_overdue", o.DaysOverdue,
			"projected_fine", o.ProjectedFine.String(),
		)
	}
	j.logger.InfoContext(ctx, "overdue sweep finished", "overdue", len(report), "projected_total", total.String())
	return len(report)
}

func (j *OverdueSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("overdue sweep job stopped")
}
