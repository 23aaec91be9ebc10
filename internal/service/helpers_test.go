package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/cache"
	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/repository/memory"
	"pistachio-backend/internal/service"
)

type fixture struct {
	store    *memory.Store
	cache    *cache.TTLCache[*domain.CustomerAccount]
	orders   service.OrderService
	ledger   service.LedgerService
	payments service.PaymentService
	accounts service.AccountService
}

func newFixture(t *testing.T, mode domain.OrderDebtMode) *fixture {
	t.Helper()
	store := memory.NewStore()
	accounts := cache.NewTTLCache[*domain.CustomerAccount]()
	return &fixture{
		store:    store,
		cache:    accounts,
		orders:   service.NewOrderService(store, accounts, mode),
		ledger:   service.NewLedgerService(store, accounts),
		payments: service.NewPaymentService(store, accounts, false),
		accounts: service.NewAccountService(store, accounts, time.Minute, mode),
	}
}

func (f *fixture) customer(t *testing.T, name string) *domain.Customer {
	t.Helper()
	c := &domain.Customer{Name: name, RelevantPerson: "Ahmet", ContactNumber: "555"}
	require.NoError(t, f.store.Customers().Create(context.Background(), c))
	return c
}

func (f *fixture) order(t *testing.T, customerID int64, total string) *domain.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), domain.OrderInput{
		CustomerID:  customerID,
		OrderDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ProductName: "Antep pistachio",
		UnitPrice:   dec(total),
		Amount:      decimal.NewFromInt(1),
		TaxRate:     decimal.Zero,
		MaturityDay: 30,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) reload(t *testing.T, orderID int64) *domain.Order {
	t.Helper()
	o, err := f.store.Orders().GetByID(context.Background(), orderID)
	require.NoError(t, err)
	return o
}

func pay(amount string) service.PaymentInput {
	return service.PaymentInput{Amount: dec(amount), Description: "part payment"}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
