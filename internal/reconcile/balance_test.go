package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pistachio-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func order(id int64, total string) domain.Order {
	t := dec(total)
	return domain.Order{
		ID:               id,
		CustomerID:       1,
		Line:             domain.OrderLine{TaxTotalPrice: t},
		TotalOrderAmount: t,
		RemainingAmount:  t,
	}
}

func TestComputeBalance_Implicit(t *testing.T) {
	orders := []domain.Order{order(10, "5000")}
	txs := []domain.FinancialTransaction{
		{ID: 1, Type: domain.TransactionTypeOpeningDebt, Amount: dec("1000"), IsDebt: true},
		{ID: 2, Type: domain.TransactionTypeOrderPayment, OrderID: int64Ptr(10), Amount: dec("2000")},
	}

	totals := ComputeBalance(domain.OrderDebtImplicit, orders, txs)
	assert.True(t, totals.OpeningBalance.Equal(dec("1000")))
	assert.True(t, totals.TotalOrderAmount.Equal(dec("5000")))
	assert.True(t, totals.TotalPaymentAmount.Equal(dec("2000")))
	assert.True(t, totals.CurrentBalance.Equal(dec("4000")))
}

func TestComputeBalance_Ledger(t *testing.T) {
	orders := []domain.Order{order(10, "5000")}
	txs := []domain.FinancialTransaction{
		{ID: 1, Type: domain.TransactionTypeOpeningDebt, Amount: dec("1000"), IsDebt: true},
		{ID: 2, Type: domain.TransactionTypeOrderDebt, OrderID: int64Ptr(10), Amount: dec("5000"), IsDebt: true},
		{ID: 3, Type: domain.TransactionTypeOrderPayment, OrderID: int64Ptr(10), Amount: dec("5000")},
	}

	totals := ComputeBalance(domain.OrderDebtLedger, orders, txs)
	assert.True(t, totals.TotalOrderAmount.Equal(dec("5000")))
	assert.True(t, totals.TotalVolume.Equal(dec("5000")))
	assert.True(t, totals.CurrentBalance.Equal(dec("1000")))

	// The same rows read in implicit mode would not double count either,
	// because the order-linked debt row is kept out of the opening balance.
	implicit := ComputeBalance(domain.OrderDebtImplicit, orders, txs)
	assert.True(t, implicit.OpeningBalance.Equal(dec("1000")))
	assert.True(t, implicit.CurrentBalance.Equal(dec("1000")))
}

func TestComputeBalance_Overpayment(t *testing.T) {
	txs := []domain.FinancialTransaction{
		{ID: 1, Type: domain.TransactionTypeOpeningDebt, Amount: dec("100"), IsDebt: true},
		{ID: 2, Type: domain.TransactionTypeManualPayment, Amount: dec("150")},
	}
	totals := ComputeBalance(domain.OrderDebtImplicit, nil, txs)
	assert.True(t, totals.CurrentBalance.Equal(dec("-50")))
	assert.True(t, DisplayDebt(totals.CurrentBalance).IsZero())
}

func TestFromAggregatesAgreesWithDerived(t *testing.T) {
	orders := []domain.Order{order(1, "1200.50"), order(2, "799.50")}
	txs := []domain.FinancialTransaction{
		{ID: 1, Amount: dec("300"), IsDebt: true, Type: domain.TransactionTypeOpeningDebt},
		{ID: 2, Amount: dec("100.25"), Type: domain.TransactionTypeOpeningPayment},
		{ID: 3, Amount: dec("1000"), OrderID: int64Ptr(1), Type: domain.TransactionTypeOrderPayment},
	}
	derived := ComputeBalance(domain.OrderDebtImplicit, orders, txs)

	supplied := FromAggregates(domain.OrderDebtImplicit, dec("2000"), domain.LedgerTotals{
		UnlinkedDebt: dec("300"),
		Payments:     dec("1100.25"),
	})
	assert.Empty(t, Verify(derived, supplied))
	assert.True(t, supplied.CurrentBalance.Equal(dec("1199.75")))

	supplied.TotalPaymentAmount = dec("1000")
	supplied.CurrentBalance = dec("1300")
	mismatches := Verify(derived, supplied)
	assert.Len(t, mismatches, 2)
	assert.Equal(t, "totalPaymentAmount", mismatches[0].Field)
	assert.Equal(t, "currentBalance", mismatches[1].Field)
}

func TestOpeningDetail(t *testing.T) {
	customer := domain.Customer{ID: 7, Name: "GROSS PERVARİ"}

	t.Run("Partial payment", func(t *testing.T) {
		txs := []domain.FinancialTransaction{
			{Amount: dec("1000"), IsDebt: true},
			{Amount: dec("400")},
			{Amount: dec("900"), OrderID: int64Ptr(3)},
		}
		d := OpeningDetail(customer, txs)
		assert.Equal(t, int64(7), d.ID)
		assert.Equal(t, "GROSS PERVARİ", d.CustomerName)
		assert.True(t, d.TotalDevirAmount.Equal(dec("1000")))
		assert.True(t, d.PaidAmount.Equal(dec("400")))
		assert.True(t, d.RemainingAmount.Equal(dec("600")))
		assert.True(t, d.IsDebt)
	})

	t.Run("Clamped at zero", func(t *testing.T) {
		txs := []domain.FinancialTransaction{
			{Amount: dec("100"), IsDebt: true},
			{Amount: dec("130")},
		}
		d := OpeningDetail(customer, txs)
		assert.True(t, d.RemainingAmount.IsZero())
		assert.False(t, d.IsDebt)
	})
}

func TestLinkedPayments(t *testing.T) {
	txs := []domain.FinancialTransaction{
		{Amount: dec("10"), OrderID: int64Ptr(1)},
		{Amount: dec("15"), OrderID: int64Ptr(1)},
		{Amount: dec("99"), OrderID: int64Ptr(1), IsDebt: true},
		{Amount: dec("20"), OrderID: int64Ptr(2)},
		{Amount: dec("5")},
	}
	assert.True(t, LinkedPayments(1, txs).Equal(dec("25")))
	assert.True(t, LinkedPayments(3, txs).IsZero())
}

func TestQuick(t *testing.T) {
	q := Quick(dec("1000.01"))
	assert.True(t, q.Full.Equal(dec("1000.01")))
	assert.True(t, q.Half.Equal(dec("500")))
	assert.True(t, q.Quarter.Equal(dec("250")))

	assert.True(t, Quick(decimal.Zero).Full.IsZero())
}

func TestRankUrgent(t *testing.T) {
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	shipped := today.Add(-240 * time.Hour)

	mk := func(id int64, maturity time.Time, settled bool, isShipped bool) domain.Order {
		o := order(id, "100")
		o.Line.MaturityDate = maturity
		o.IsPayment = settled
		if isShipped {
			o.ShippedDate = &shipped
		}
		return o
	}

	orders := []domain.Order{
		mk(1, today.AddDate(0, 0, 5), false, true),
		mk(2, today.AddDate(0, 0, -3), false, true),
		mk(3, today.AddDate(0, 0, -3), false, true),
		mk(4, today.AddDate(0, 0, -10), true, true),
		mk(5, today.AddDate(0, 0, -20), false, false),
		mk(6, today.AddDate(0, 0, 1), false, true),
	}

	ranked := RankUrgent(orders, today)
	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.OrderID
	}
	assert.Equal(t, []int64{2, 3, 6, 1}, ids)
	assert.True(t, ranked[0].Overdue)
	assert.Equal(t, -3, ranked[0].DiffDays)
	assert.False(t, ranked[2].Overdue)

	overdue, upcoming := SplitOverdue(ranked)
	assert.Len(t, overdue, 2)
	assert.Len(t, upcoming, 2)
}
