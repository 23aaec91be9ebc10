package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/config"
	"pistachio-backend/internal/jobs"
	"pistachio-backend/internal/repository/memory"
)

func schedulerConfig() *config.Config {
	return &config.Config{Scheduler: config.SchedulerConfig{
		SendOverdueReminders:     "0 0 8 * * *",
		TakeBalanceSnapshots:     "0 0 0 1 * *",
		VerifyBalances:           "0 0 2 * * *",
		CompensateStockMovements: "0 15 * * * *",
		StaleMovementMinutes:     30,
	}}
}

func TestNewScheduler(t *testing.T) {
	runner := jobs.NewJobRunner(memory.NewStore(), &jobs.Services{}, schedulerConfig())
	s, err := NewScheduler(runner)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Entries())

	s.Start()
	s.Stop()
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := schedulerConfig()
	// "L" (last day of month) is not understood by the parser.
	cfg.Scheduler.TakeBalanceSnapshots = "0 0 0 L * *"
	_, err := NewScheduler(jobs.NewJobRunner(memory.NewStore(), &jobs.Services{}, cfg))
	assert.Error(t, err)
}
