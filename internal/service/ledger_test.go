package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/service"
)

func TestLedgerService_OpeningBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Add then pay down", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "GROSS PERVARİ")

		added, err := f.ledger.AddOpeningBalance(ctx, c.ID, service.PaymentInput{Amount: dec("1000"), Description: "devir"})
		require.NoError(t, err)
		assert.False(t, added.Replayed)
		debt := added.Transaction
		assert.Equal(t, domain.TransactionTypeOpeningDebt, debt.Type)
		assert.True(t, debt.IsDebt)
		assert.Nil(t, debt.OrderID)

		paid, err := f.ledger.PayOpeningBalance(ctx, c.ID, pay("400"))
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeOpeningPayment, paid.Transaction.Type)
		assert.False(t, paid.Transaction.IsDebt)

		detail, err := f.ledger.GetOpeningBalanceDetail(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "GROSS PERVARİ", detail.CustomerName)
		assertDecimal(t, "1000", detail.TotalDevirAmount)
		assertDecimal(t, "400", detail.PaidAmount)
		assertDecimal(t, "600", detail.RemainingAmount)
		assert.True(t, detail.IsDebt)
	})

	t.Run("Payment above remaining is rejected", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		_, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("100"))
		require.NoError(t, err)

		_, err = f.ledger.PayOpeningBalance(ctx, c.ID, pay("100.01"))
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "amount cannot exceed remaining opening balance", vErr.Message)

		rows, err := f.ledger.ListTransactions(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Missing customer is a validation error", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		_, err := f.ledger.AddOpeningBalance(ctx, 99, pay("10"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Repeated key replays opening payment", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		_, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("100"))
		require.NoError(t, err)

		in := pay("60")
		in.IdempotencyKey = uuid.NewString()
		first, err := f.ledger.PayOpeningBalance(ctx, c.ID, in)
		require.NoError(t, err)
		second, err := f.ledger.PayOpeningBalance(ctx, c.ID, in)
		require.NoError(t, err)
		assert.False(t, first.Replayed)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

		detail, err := f.ledger.GetOpeningBalanceDetail(ctx, c.ID)
		require.NoError(t, err)
		assertDecimal(t, "40", detail.RemainingAmount)
	})

	t.Run("Key spent on another customer or movement is a conflict", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		a := f.customer(t, "A")
		b := f.customer(t, "B")
		o := f.order(t, a.ID, "500")
		_, err := f.ledger.AddOpeningBalance(ctx, b.ID, pay("1000"))
		require.NoError(t, err)

		orderKey := pay("100")
		orderKey.IdempotencyKey = "k1"
		_, err = f.payments.PayOrder(ctx, o.ID, orderKey)
		require.NoError(t, err)

		in := pay("300")
		in.IdempotencyKey = "k1"
		_, err = f.ledger.PayOpeningBalance(ctx, b.ID, in)
		assert.ErrorIs(t, err, domain.ErrConflict)
		_, err = f.ledger.AddOpeningBalance(ctx, b.ID, in)
		assert.ErrorIs(t, err, domain.ErrConflict)

		in.IdempotencyKey = "k2"
		_, err = f.ledger.PayOpeningBalance(ctx, b.ID, in)
		require.NoError(t, err)
		_, err = f.ledger.AddOpeningBalance(ctx, b.ID, in)
		assert.ErrorIs(t, err, domain.ErrConflict)
		_, err = f.ledger.PayOpeningBalance(ctx, a.ID, in)
		assert.ErrorIs(t, err, domain.ErrConflict)

		detail, err := f.ledger.GetOpeningBalanceDetail(ctx, b.ID)
		require.NoError(t, err)
		assertDecimal(t, "700", detail.RemainingAmount)
		rows, err := f.ledger.ListTransactions(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		rows, err = f.ledger.ListTransactions(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Date is truncated to the day", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		in := pay("10")
		in.Date = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

		res, err := f.ledger.AddOpeningBalance(ctx, c.ID, in)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), res.Transaction.Date)
	})
}

func TestLedgerService_UpdateTransaction(t *testing.T) {
	ctx := context.Background()

	update := func(tx *domain.FinancialTransaction, amount string) domain.TransactionUpdate {
		return domain.TransactionUpdate{
			CustomerID:  tx.CustomerID,
			OrderID:     tx.OrderID,
			Date:        tx.Date,
			Amount:      dec(amount),
			Description: "corrected",
			IsDebt:      tx.IsDebt,
		}
	}

	t.Run("Linked payment edit resyncs the order", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "5000")
		res, err := f.payments.PayOrder(ctx, o.ID, pay("2000"))
		require.NoError(t, err)

		updated, err := f.ledger.UpdateTransaction(ctx, res.Transaction.ID, update(res.Transaction, "1500"))
		require.NoError(t, err)
		assert.Equal(t, "corrected", updated.Description)

		after := f.reload(t, o.ID)
		assertDecimal(t, "1500", after.PaidAmount)
		assertDecimal(t, "3500", after.RemainingAmount)
	})

	t.Run("Settled order cannot be lowered", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "100")
		res, err := f.payments.PayOrder(ctx, o.ID, pay("100"))
		require.NoError(t, err)

		_, err = f.ledger.UpdateTransaction(ctx, res.Transaction.ID, update(res.Transaction, "50"))
		assert.ErrorIs(t, err, domain.ErrOrderSettled)

		after := f.reload(t, o.ID)
		assert.True(t, after.IsPayment)
		assertDecimal(t, "100", after.PaidAmount)
		stored, err := f.store.Transactions().GetByID(ctx, res.Transaction.ID)
		require.NoError(t, err)
		assertDecimal(t, "100", stored.Amount)
	})

	t.Run("Edit above order total is rejected", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "100")
		res, err := f.payments.PayOrder(ctx, o.ID, pay("10"))
		require.NoError(t, err)

		_, err = f.ledger.UpdateTransaction(ctx, res.Transaction.ID, update(res.Transaction, "101"))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assertDecimal(t, "10", f.reload(t, o.ID).PaidAmount)
	})

	t.Run("Linking to another customer's order is rejected", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		a := f.customer(t, "A")
		b := f.customer(t, "B")
		other := f.order(t, b.ID, "100")
		res, err := f.ledger.AddOpeningBalance(ctx, a.ID, pay("10"))
		require.NoError(t, err)
		tx := res.Transaction

		upd := update(tx, "10")
		upd.OrderID = &other.ID
		_, err = f.ledger.UpdateTransaction(ctx, tx.ID, upd)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Flipping direction re-derives the kind", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		res, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("10"))
		require.NoError(t, err)

		upd := update(res.Transaction, "10")
		upd.IsDebt = false
		updated, err := f.ledger.UpdateTransaction(ctx, res.Transaction.ID, upd)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeOpeningPayment, updated.Type)

		stored, err := f.store.Transactions().GetByID(ctx, res.Transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeOpeningPayment, stored.Type)
		assert.False(t, stored.IsDebt)
	})

	t.Run("Linking an opening payment to an order makes it an order payment", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		_, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("100"))
		require.NoError(t, err)
		paid, err := f.ledger.PayOpeningBalance(ctx, c.ID, pay("50"))
		require.NoError(t, err)
		o := f.order(t, c.ID, "500")

		upd := update(paid.Transaction, "50")
		upd.OrderID = &o.ID
		updated, err := f.ledger.UpdateTransaction(ctx, paid.Transaction.ID, upd)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeOrderPayment, updated.Type)
		assertDecimal(t, "50", f.reload(t, o.ID).PaidAmount)
	})

	t.Run("Debt row cannot be linked to an order", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "500")
		res, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("10"))
		require.NoError(t, err)

		upd := update(res.Transaction, "10")
		upd.OrderID = &o.ID
		_, err = f.ledger.UpdateTransaction(ctx, res.Transaction.ID, upd)
		assert.ErrorIs(t, err, domain.ErrValidation)

		stored, err := f.store.Transactions().GetByID(ctx, res.Transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeOpeningDebt, stored.Type)
		assert.Nil(t, stored.OrderID)
	})

	t.Run("Order debt row follows its order", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtLedger)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "300")
		rows, err := f.store.Transactions().ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		_, err = f.ledger.UpdateTransaction(ctx, rows[0].ID, update(&rows[0], "100"))
		assert.ErrorIs(t, err, domain.ErrConflict)

		account, err := f.accounts.GetCustomerAccount(ctx, c.ID)
		require.NoError(t, err)
		assertDecimal(t, "300", account.CurrentBalance)
		assert.True(t, account.BalanceVerified)
	})

	t.Run("Zero amount is rejected", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		res, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("10"))
		require.NoError(t, err)

		_, err = f.ledger.UpdateTransaction(ctx, res.Transaction.ID, update(res.Transaction, "0"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLedgerService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Unlinked row leaves orders alone", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		opening, err := f.ledger.AddOpeningBalance(ctx, c.ID, pay("1000"))
		require.NoError(t, err)
		o := f.order(t, c.ID, "5000")
		_, err = f.payments.PayOrder(ctx, o.ID, pay("2000"))
		require.NoError(t, err)
		before := f.reload(t, o.ID)

		require.NoError(t, f.ledger.DeleteTransaction(ctx, opening.Transaction.ID))

		after := f.reload(t, o.ID)
		assert.True(t, before.PaidAmount.Equal(after.PaidAmount))
		assert.True(t, before.RemainingAmount.Equal(after.RemainingAmount))
		assert.Equal(t, before.IsPayment, after.IsPayment)

		account, err := f.accounts.GetCustomerAccount(ctx, c.ID)
		require.NoError(t, err)
		assertDecimal(t, "3000", account.CurrentBalance)
	})

	t.Run("Linked payment of open order resyncs", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "100")
		res, err := f.payments.PayOrder(ctx, o.ID, pay("30"))
		require.NoError(t, err)

		require.NoError(t, f.ledger.DeleteTransaction(ctx, res.Transaction.ID))
		after := f.reload(t, o.ID)
		assert.True(t, after.PaidAmount.IsZero())
		assertDecimal(t, "100", after.RemainingAmount)
	})

	t.Run("Linked payment of settled order is refused", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "100")
		res, err := f.payments.PayOrder(ctx, o.ID, pay("100"))
		require.NoError(t, err)

		err = f.ledger.DeleteTransaction(ctx, res.Transaction.ID)
		assert.ErrorIs(t, err, domain.ErrOrderSettled)
		_, err = f.store.Transactions().GetByID(ctx, res.Transaction.ID)
		assert.NoError(t, err)
		assert.True(t, f.reload(t, o.ID).IsPayment)
	})

	t.Run("Order debt row is refused", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtLedger)
		c := f.customer(t, "Buyer")
		o := f.order(t, c.ID, "300")
		rows, err := f.store.Transactions().ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		err = f.ledger.DeleteTransaction(ctx, rows[0].ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		_, err = f.store.Transactions().GetByID(ctx, rows[0].ID)
		assert.NoError(t, err)

		account, err := f.accounts.GetCustomerAccount(ctx, c.ID)
		require.NoError(t, err)
		assertDecimal(t, "300", account.CurrentBalance)
	})

	t.Run("Unknown row", func(t *testing.T) {
		f := newFixture(t, domain.OrderDebtImplicit)
		assert.ErrorIs(t, f.ledger.DeleteTransaction(ctx, 12), domain.ErrNotFound)
	})
}
