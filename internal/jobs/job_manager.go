// internal/jobs/job_manager.go

// Package jobs runs the scheduled maintenance work of the circulation service.
package jobs

import (
	"fmt"
	"log/slog"
)

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	overdueSweepJob *OverdueSweepJob
	auditJob        *AuditJob
}

func NewJobManager(reporter OverdueReporter, auditor Auditor, sweepSchedule, auditSchedule string, logger *slog.Logger) *JobManager {
	return &JobManager{
		overdueSweepJob: NewOverdueSweepJob(reporter, sweepSchedule, logger),
		auditJob:        NewAuditJob(auditor, auditSchedule, logger),
	}
}

// StartAll starts all scheduled jobs. If one fails to start, the ones
// already running are stopped.
func (jm *JobManager) StartAll() error {
	if err := jm.overdueSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start overdue sweep job: %w", err)
	}

	if err := jm.auditJob.Start(); err != nil {
		jm.overdueSweepJob.Stop()
		return fmt.Errorf("failed to start audit job: %w", err)
	}

	return nil
}

// StopAll stops all jobs, waiting for running ones to finish.
func (jm *JobManager) StopAll() {
	jm.auditJob.Stop()
	jm.overdueSweepJob.Stop()
}
