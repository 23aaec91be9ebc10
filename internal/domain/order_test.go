package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newOrder(total string) *Order {
	t := decimal.RequireFromString(total)
	return &Order{ID: 1, CustomerID: 1, TotalOrderAmount: t, RemainingAmount: t, PaidAmount: decimal.Zero}
}

func TestOrder_State(t *testing.T) {
	o := newOrder("100")
	assert.Equal(t, OrderStatePreparing, o.State())

	assert.NoError(t, o.Ship(time.Now()))
	assert.Equal(t, OrderStateShippedUnpaid, o.State())

	assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(100)))
	assert.Equal(t, OrderStateSettled, o.State())
}

func TestOrder_Ship(t *testing.T) {
	t.Run("Sets shipped date once", func(t *testing.T) {
		o := newOrder("100")
		at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		assert.NoError(t, o.Ship(at))
		assert.Equal(t, at, *o.ShippedDate)

		err := o.Ship(at.Add(time.Hour))
		assert.ErrorIs(t, err, ErrAlreadyShipped)
		assert.Equal(t, at, *o.ShippedDate)
	})

	t.Run("Does not touch payment fields", func(t *testing.T) {
		o := newOrder("100")
		assert.NoError(t, o.Ship(time.Now()))
		assert.True(t, o.PaidAmount.IsZero())
		assert.True(t, o.RemainingAmount.Equal(decimal.NewFromInt(100)))
		assert.False(t, o.IsPayment)
	})
}

func TestOrder_ApplyPayment(t *testing.T) {
	t.Run("Partial then full", func(t *testing.T) {
		o := newOrder("5000")
		assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(2000)))
		assert.True(t, o.PaidAmount.Equal(decimal.NewFromInt(2000)))
		assert.True(t, o.RemainingAmount.Equal(decimal.NewFromInt(3000)))
		assert.False(t, o.IsPayment)

		assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(3000)))
		assert.True(t, o.RemainingAmount.IsZero())
		assert.True(t, o.IsPayment)
	})

	t.Run("Rejects more than remaining", func(t *testing.T) {
		o := newOrder("100")
		err := o.ApplyPayment(decimal.RequireFromString("100.01"))
		assert.ErrorIs(t, err, ErrValidation)
		assert.True(t, o.PaidAmount.IsZero())
		assert.False(t, o.IsPayment)
	})

	t.Run("Rejects non positive", func(t *testing.T) {
		o := newOrder("100")
		for _, amount := range []string{"0", "-5"} {
			err := o.ApplyPayment(decimal.RequireFromString(amount))
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr))
			assert.Equal(t, "amount", vErr.Field)
		}
	})

	t.Run("Settled order rejects further payment", func(t *testing.T) {
		o := newOrder("10")
		assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(10)))
		assert.ErrorIs(t, o.ApplyPayment(decimal.NewFromInt(1)), ErrValidation)
	})
}

func TestOrder_SyncPaid(t *testing.T) {
	t.Run("Lowers paid on unsettled order", func(t *testing.T) {
		o := newOrder("100")
		assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(60)))
		assert.NoError(t, o.SyncPaid(decimal.NewFromInt(20)))
		assert.True(t, o.RemainingAmount.Equal(decimal.NewFromInt(80)))
	})

	t.Run("Refuses to lower settled order", func(t *testing.T) {
		o := newOrder("100")
		assert.NoError(t, o.ApplyPayment(decimal.NewFromInt(100)))
		assert.ErrorIs(t, o.SyncPaid(decimal.NewFromInt(50)), ErrOrderSettled)
		assert.True(t, o.IsPayment)
	})

	t.Run("Refuses more than total", func(t *testing.T) {
		o := newOrder("100")
		assert.ErrorIs(t, o.SyncPaid(decimal.NewFromInt(101)), ErrValidation)
	})
}

func TestStockStage_Next(t *testing.T) {
	next, ok := StockStageRawMaterial.Next()
	assert.True(t, ok)
	assert.Equal(t, StockStageNeighborhood, next)

	_, ok = StockStageSaleReady.Next()
	assert.False(t, ok)

	assert.False(t, StockStage("ROASTED").Valid())
}
