package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/reconcile"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/utils"
)

type reminderService struct {
	store    repository.Store
	notifier Notifier
}

func NewReminderService(store repository.Store, notifier Notifier) ReminderService {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &reminderService{store: store, notifier: notifier}
}

// SendOverdueReminders mails every customer with an address one message
// listing their overdue shipped orders. It returns the number of messages
// sent. A failed send is logged and does not stop the run.
func (s *reminderService) SendOverdueReminders(ctx context.Context, today time.Time) (int, error) {
	logger.EnterMethod("reminderService.SendOverdueReminders", "today", today)

	orders, err := s.store.Orders().ListShippedUnpaid(ctx)
	if err != nil {
		logger.ExitMethodWithError("reminderService.SendOverdueReminders", err)
		return 0, err
	}
	overdue, _ := reconcile.SplitOverdue(reconcile.RankUrgent(orders, today))

	byCustomer := make(map[int64][]reconcile.UrgentOrder)
	var customerIDs []int64
	for _, u := range overdue {
		if _, seen := byCustomer[u.CustomerID]; !seen {
			customerIDs = append(customerIDs, u.CustomerID)
		}
		byCustomer[u.CustomerID] = append(byCustomer[u.CustomerID], u)
	}

	sent := 0
	var sendErrs []error
	for _, id := range customerIDs {
		customer, err := s.store.Customers().GetByID(ctx, id)
		if err != nil {
			logger.ExitMethodWithError("reminderService.SendOverdueReminders", err, "customerID", id)
			return sent, err
		}
		if customer.Email == "" {
			logger.Debug("Skipping reminder, customer has no email", "customerID", id)
			continue
		}
		if err := s.notifier.Send(ctx, reminderMessage(customer, byCustomer[id])); err != nil {
			logger.Error("Failed to send overdue reminder", "customerID", id, "error", err)
			sendErrs = append(sendErrs, err)
			continue
		}
		sent++
	}

	logger.ExitMethod("reminderService.SendOverdueReminders", "sent", sent, "failed", len(sendErrs))
	return sent, errors.Join(sendErrs...)
}

func reminderMessage(c *domain.Customer, orders []reconcile.UrgentOrder) Message {
	var plain, rows strings.Builder
	fmt.Fprintf(&plain, "Dear %s,\n\nThe following orders are past their maturity date:\n\n", c.Name)
	for _, o := range orders {
		due := o.MaturityDate.Format(utils.DateLayout)
		fmt.Fprintf(&plain, "  Order #%d %s, due %s, remaining %s (%d days overdue)\n",
			o.OrderID, o.ProductName, due, o.RemainingAmount.StringFixed(2), -o.DiffDays)
		fmt.Fprintf(&rows, "<tr><td>#%d</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			o.OrderID, html.EscapeString(o.ProductName), due, o.RemainingAmount.StringFixed(2))
	}
	plain.WriteString("\nPlease arrange payment at your earliest convenience.\n")

	body := fmt.Sprintf(`<html><body><p>Dear %s,</p><p>The following orders are past their maturity date:</p>`+
		`<table><tr><th>Order</th><th>Product</th><th>Due</th><th>Remaining</th></tr>%s</table>`+
		`<p>Please arrange payment at your earliest convenience.</p></body></html>`,
		html.EscapeString(c.Name), rows.String())

	return Message{
		To:        c.Email,
		ToName:    c.RelevantPerson,
		Subject:   fmt.Sprintf("Payment reminder: %d overdue order(s)", len(orders)),
		PlainText: plain.String(),
		HTML:      body,
	}
}
