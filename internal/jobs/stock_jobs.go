package jobs

import (
	"context"
	"time"

	"pistachio-backend/internal/logger"
)

// CompensateStockMovements closes stock movements that stayed PENDING or
// FAILED for longer than the configured grace period.
func (jr *JobRunner) CompensateStockMovements() error {
	return jr.runWithRecovery("CompensateStockMovements", func(ctx context.Context) error {
		grace := time.Duration(jr.config.Scheduler.StaleMovementMinutes) * time.Minute
		count, err := jr.services.Stock.CompensateStale(ctx, jr.now().Add(-grace))
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Stale stock movements compensated", "count", count)
		return nil
	})
}
