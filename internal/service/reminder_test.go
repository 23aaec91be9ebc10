package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/service"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg service.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestReminderService_SendOverdueReminders(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*fixture, *domain.Customer) {
		f := newFixture(t, domain.OrderDebtImplicit)

		withEmail := &domain.Customer{Name: "GROSS PERVARİ", Email: "muhasebe@example.com"}
		require.NoError(t, f.store.Customers().Create(ctx, withEmail))
		noEmail := f.customer(t, "No Mail")

		for _, c := range []*domain.Customer{withEmail, noEmail} {
			o := f.order(t, c.ID, "500")
			_, err := f.orders.ShipOrder(ctx, o.ID, o.OrderDate)
			require.NoError(t, err)
		}
		// Not shipped, so never overdue.
		f.order(t, withEmail.ID, "700")
		return f, withEmail
	}

	t.Run("One message per customer with an address", func(t *testing.T) {
		f, customer := setup(t)
		notifier := new(MockNotifier)
		notifier.On("Send", ctx, mock.MatchedBy(func(msg service.Message) bool {
			return msg.To == customer.Email && msg.Subject == "Payment reminder: 1 overdue order(s)"
		})).Return(nil).Once()

		sent, err := service.NewReminderService(f.store, notifier).SendOverdueReminders(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		notifier.AssertExpectations(t)
	})

	t.Run("Send failure is reported and counted out", func(t *testing.T) {
		f, _ := setup(t)
		notifier := new(MockNotifier)
		notifier.On("Send", ctx, mock.Anything).Return(errors.New("rate limited"))

		sent, err := service.NewReminderService(f.store, notifier).SendOverdueReminders(ctx, today)
		assert.Error(t, err)
		assert.Zero(t, sent)
	})

	t.Run("Nothing overdue yet", func(t *testing.T) {
		f, _ := setup(t)
		notifier := new(MockNotifier)

		sent, err := service.NewReminderService(f.store, notifier).SendOverdueReminders(ctx, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Zero(t, sent)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}
