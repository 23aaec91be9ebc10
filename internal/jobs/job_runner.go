package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pistachio-backend/internal/config"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/service"
)

// Job names accepted by Run and the --run-once flag.
const (
	JobSendOverdueReminders     = "send-overdue-reminders"
	JobTakeBalanceSnapshots     = "take-balance-snapshots"
	JobVerifyBalances           = "verify-balances"
	JobCompensateStockMovements = "compensate-stock-movements"
	JobAll                      = "all"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Accounts  service.AccountService
	Stock     service.StockService
	Reminders service.ReminderService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the runner's time source.
func (jr *JobRunner) WithClock(now func() time.Time) *JobRunner {
	jr.now = now
	return jr
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery. A panic is
// reported as the job's error.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx := logger.WithRequestID(context.Background(), "job:"+jobName)
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	start := time.Now()
	logger.InfoContext(ctx, "Starting job", "job", jobName)
	if err = jobFunc(ctx); err != nil {
		logger.ErrorContext(ctx, "Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.InfoContext(ctx, "Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (jr *JobRunner) registry() map[string]func() error {
	return map[string]func() error{
		JobSendOverdueReminders:     jr.SendOverdueReminders,
		JobTakeBalanceSnapshots:     jr.TakeBalanceSnapshots,
		JobVerifyBalances:           jr.VerifyBalances,
		JobCompensateStockMovements: jr.CompensateStockMovements,
	}
}

// JobNames lists the runnable jobs in a stable order.
func (jr *JobRunner) JobNames() []string {
	names := make([]string, 0, len(jr.registry())+1)
	for name := range jr.registry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, JobAll)
}

// Run executes one job by name, or every job for JobAll.
func (jr *JobRunner) Run(name string) error {
	if name == JobAll {
		return jr.RunAll()
	}
	job, ok := jr.registry()[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job()
}

// RunAll runs every job once, continuing past failures. The first error is
// returned.
func (jr *JobRunner) RunAll() error {
	var first error
	for _, name := range jr.JobNames() {
		if name == JobAll {
			continue
		}
		if err := jr.registry()[name](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
