package jobs

import (
	"context"
	"fmt"

	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/utils"
)

// SendOverdueReminders e-mails every customer with shipped orders past their
// maturity date.
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) error {
		today := utils.StartOfDay(jr.now())
		sent, err := jr.services.Reminders.SendOverdueReminders(ctx, today)
		logger.InfoContext(ctx, "Overdue reminders sent", "count", sent, "date", today.Format(utils.DateLayout))
		return err
	})
}

// TakeBalanceSnapshots records the current balance of every customer.
func (jr *JobRunner) TakeBalanceSnapshots() error {
	return jr.runWithRecovery("TakeBalanceSnapshots", func(ctx context.Context) error {
		count, err := jr.services.Accounts.TakeSnapshots(ctx, jr.now())
		if err != nil {
			return fmt.Errorf("take snapshots: %w", err)
		}
		logger.InfoContext(ctx, "Balance snapshots taken", "count", count)
		return nil
	})
}

// VerifyBalances checks every derived balance against the store's own sums.
// Mismatches are logged; they never fail the job.
func (jr *JobRunner) VerifyBalances() error {
	return jr.runWithRecovery("VerifyBalances", func(ctx context.Context) error {
		customers, err := jr.store.Customers().List(ctx)
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}

		mismatched := 0
		for _, c := range customers {
			mismatches, err := jr.services.Accounts.VerifyBalance(ctx, c.ID)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to verify balance", "customer_id", c.ID, "error", err)
				continue
			}
			if len(mismatches) > 0 {
				mismatched++
				for _, m := range mismatches {
					logger.WarnContext(ctx, "Balance mismatch",
						"customer_id", c.ID,
						"field", m.Field,
						"derived", m.Derived.String(),
						"stored", m.Supplied.String())
				}
			}
		}

		logger.InfoContext(ctx, "Balances verified", "customers", len(customers), "mismatched", mismatched)
		return nil
	})
}
