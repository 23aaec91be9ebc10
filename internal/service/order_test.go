package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/service"
)

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Prices the line", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")

		o, err := f.orders.CreateOrder(ctx, domain.OrderInput{
			CustomerID:  c.ID,
			OrderDate:   time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
			ProductName: "Kırmızı fıstık",
			UnitPrice:   dec("312.45"),
			Amount:      dec("12.5"),
			TaxRate:     dec("1"),
			MaturityDay: 45,
			DolarRate:   dec("36.2"),
		})
		require.NoError(t, err)
		assertDecimal(t, "3905.63", o.Line.TotalPrice)
		assertDecimal(t, "39.06", o.Line.TaxAmount)
		assertDecimal(t, "3944.69", o.TotalOrderAmount)
		assertDecimal(t, "3944.69", o.RemainingAmount)
		assert.True(t, o.PaidAmount.IsZero())
		assert.Equal(t, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC), o.Line.MaturityDate)
		assert.Equal(t, domain.OrderStatePreparing, o.State())
	})

	t.Run("Unknown customer", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		_, err := f.orders.CreateOrder(ctx, domain.OrderInput{
			CustomerID: 42, ProductName: "x", UnitPrice: decimal.NewFromInt(1), Amount: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Invalid input", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		_, err := f.orders.CreateOrder(ctx, domain.OrderInput{CustomerID: c.ID, ProductName: "x", Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, domain.ErrValidation)
		orders, err := f.orders.ListOrders(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestOrderService_ShipOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.OrderDebtImplicit)
	c := f.customer(t, "Buyer")
	o := f.order(t, c.ID, "100")
	_, err := f.payments.PayOrder(ctx, o.ID, pay("40"))
	require.NoError(t, err)

	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	shipped, err := f.orders.ShipOrder(ctx, o.ID, at)
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedDate)
	assert.Equal(t, at, shipped.ShippedDate.UTC())
	assertDecimal(t, "40", shipped.PaidAmount)
	assertDecimal(t, "60", shipped.RemainingAmount)

	_, err = f.orders.ShipOrder(ctx, o.ID, at.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrAlreadyShipped)
	assert.Equal(t, at, f.reload(t, o.ID).ShippedDate.UTC())

	_, err = f.orders.ShipOrder(ctx, 999, at)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderService_UrgentOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.OrderDebtImplicit)
	c := f.customer(t, "Buyer")

	mk := func(day, maturity int) *domain.Order {
		o, err := f.orders.CreateOrder(ctx, domain.OrderInput{
			CustomerID: c.ID, OrderDate: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
			ProductName: "Antep", UnitPrice: dec("10"), Amount: dec("1"), MaturityDay: maturity,
		})
		require.NoError(t, err)
		_, err = f.orders.ShipOrder(ctx, o.ID, o.OrderDate)
		require.NoError(t, err)
		return o
	}
	later := mk(1, 60)
	overdue := mk(1, 10)
	settled := mk(1, 5)
	_, err := f.payments.PayOrder(ctx, settled.ID, pay("10"))
	require.NoError(t, err)
	f.order(t, c.ID, "10")

	ranked, err := f.orders.UrgentOrders(ctx, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, overdue.ID, ranked[0].OrderID)
	assert.True(t, ranked[0].Overdue)
	assert.Equal(t, -9, ranked[0].DiffDays)
	assert.Equal(t, later.ID, ranked[1].OrderID)
	assert.False(t, ranked[1].Overdue)
}

func TestCustomerService_DeleteCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.OrderDebtImplicit)
	svc := service.NewCustomerService(f.store, f.cache)

	idle := &domain.Customer{Name: "Idle"}
	require.NoError(t, svc.CreateCustomer(ctx, idle))
	busy := &domain.Customer{Name: "Busy"}
	require.NoError(t, svc.CreateCustomer(ctx, busy))
	_, err := f.ledger.AddOpeningBalance(ctx, busy.ID, pay("10"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCustomer(ctx, busy.ID), domain.ErrConflict)
	require.NoError(t, svc.DeleteCustomer(ctx, idle.ID))
	_, err = svc.GetCustomer(ctx, idle.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.CreateCustomer(ctx, &domain.Customer{Name: "  "}), domain.ErrValidation)
}
