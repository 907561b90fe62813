package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/mnjoroge/rentdash/internal/logger"

	"github.com/robfig/cron/v3"
)

// Job runs the consistency scan on a schedule.
type Job struct {
	cron    *cron.Cron
	scanner *Scanner
	log     logger.Logger
}

// NewJob creates a scheduled scan with a standard cron expression.
func NewJob(scanner *Scanner, schedule string, log logger.Logger) (*Job, error) {
	job := &Job{
		cron:    cron.New(),
		scanner: scanner,
		log:     log,
	}

	_, err := job.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, scanErr := scanner.Scan(ctx); scanErr != nil {
			log.Error("scheduled reconciliation scan failed", "error", scanErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reconciliation scan %q: %w", schedule, err)
	}

	return job, nil
}

// Start begins running the schedule in its own goroutine.
func (j *Job) Start() {
	j.cron.Start()
	j.log.Info("reconciliation scan scheduled")
}

// Stop halts the schedule and waits for a running scan to finish.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
