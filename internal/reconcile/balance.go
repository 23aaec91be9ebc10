// Package reconcile folds orders and ledger rows into balances. Every function
// here is pure; callers fetch the lists and the package does the arithmetic.
package reconcile

import (
	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
)

// Totals is the result of folding a customer's orders and ledger rows.
type Totals struct {
	OpeningBalance     decimal.Decimal
	TotalVolume        decimal.Decimal
	TotalOrderAmount   decimal.Decimal
	TotalPaymentAmount decimal.Decimal
	CurrentBalance     decimal.Decimal
}

// ComputeBalance is the one canonical balance computation:
//
//	currentBalance = openingBalance + totalOrderAmount - totalPaymentAmount
//
// Opening balance is every debt row not linked to an order. Payments are every
// non-debt row regardless of kind. Order debt is read from the order totals in
// implicit mode and from order-linked debt rows in ledger mode.
func ComputeBalance(mode domain.OrderDebtMode, orders []domain.Order, txs []domain.FinancialTransaction) Totals {
	var t Totals
	for _, o := range orders {
		t.TotalVolume = t.TotalVolume.Add(o.Line.TaxTotalPrice)
	}

	linkedDebt := decimal.Zero
	for _, tx := range txs {
		switch {
		case !tx.IsDebt:
			t.TotalPaymentAmount = t.TotalPaymentAmount.Add(tx.Amount)
		case tx.IsOrderLinked():
			linkedDebt = linkedDebt.Add(tx.Amount)
		default:
			t.OpeningBalance = t.OpeningBalance.Add(tx.Amount)
		}
	}

	if mode == domain.OrderDebtLedger {
		t.TotalOrderAmount = linkedDebt
	} else {
		t.TotalOrderAmount = t.TotalVolume
	}
	t.CurrentBalance = t.OpeningBalance.Add(t.TotalOrderAmount).Sub(t.TotalPaymentAmount)
	return t
}

// FromAggregates builds Totals from sums computed by the store.
func FromAggregates(mode domain.OrderDebtMode, orderVolume decimal.Decimal, lt domain.LedgerTotals) Totals {
	t := Totals{
		OpeningBalance:     lt.UnlinkedDebt,
		TotalVolume:        orderVolume,
		TotalPaymentAmount: lt.Payments,
	}
	if mode == domain.OrderDebtLedger {
		t.TotalOrderAmount = lt.LinkedDebt
	} else {
		t.TotalOrderAmount = orderVolume
	}
	t.CurrentBalance = t.OpeningBalance.Add(t.TotalOrderAmount).Sub(t.TotalPaymentAmount)
	return t
}

// Mismatch names a field on which two Totals disagree.
type Mismatch struct {
	Field    string
	Derived  decimal.Decimal
	Supplied decimal.Decimal
}

// Verify compares supplied totals against the derived ones and returns every
// field that differs.
func Verify(derived, supplied Totals) []Mismatch {
	var out []Mismatch
	check := func(field string, d, s decimal.Decimal) {
		if !d.Equal(s) {
			out = append(out, Mismatch{Field: field, Derived: d, Supplied: s})
		}
	}
	check("openingBalance", derived.OpeningBalance, supplied.OpeningBalance)
	check("totalOrderAmount", derived.TotalOrderAmount, supplied.TotalOrderAmount)
	check("totalPaymentAmount", derived.TotalPaymentAmount, supplied.TotalPaymentAmount)
	check("currentBalance", derived.CurrentBalance, supplied.CurrentBalance)
	return out
}

// DisplayDebt is the balance as shown to users: overpayment reads as no debt.
func DisplayDebt(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// OrderRemaining is total minus paid for one order.
func OrderRemaining(o domain.Order) decimal.Decimal {
	return o.TotalOrderAmount.Sub(o.PaidAmount)
}

// OpeningDetail folds the opening pool of a customer: debt rows and payment
// rows that are not linked to any order. Remaining is clamped at zero.
func OpeningDetail(customer domain.Customer, txs []domain.FinancialTransaction) domain.OpeningBalanceDetail {
	d := domain.OpeningBalanceDetail{
		ID:           customer.ID,
		CustomerName: customer.Name,
	}
	for _, tx := range txs {
		if tx.IsOrderLinked() {
			continue
		}
		if tx.IsDebt {
			d.TotalDevirAmount = d.TotalDevirAmount.Add(tx.Amount)
		} else {
			d.PaidAmount = d.PaidAmount.Add(tx.Amount)
		}
	}
	d.RemainingAmount = DisplayDebt(d.TotalDevirAmount.Sub(d.PaidAmount))
	d.IsDebt = d.RemainingAmount.IsPositive()
	return d
}

// LinkedPayments sums the payment rows linked to orderID.
func LinkedPayments(orderID int64, txs []domain.FinancialTransaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if !tx.IsDebt && tx.OrderID != nil && *tx.OrderID == orderID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

var (
	two  = decimal.NewFromInt(2)
	four = decimal.NewFromInt(4)
)

// QuickAmounts are the pre-filled payment amounts offered for a remaining
// balance: all of it, half and a quarter, rounded down to cents.
type QuickAmounts struct {
	Full    decimal.Decimal `json:"full"`
	Half    decimal.Decimal `json:"half"`
	Quarter decimal.Decimal `json:"quarter"`
}

func Quick(remaining decimal.Decimal) QuickAmounts {
	if !remaining.IsPositive() {
		return QuickAmounts{}
	}
	return QuickAmounts{
		Full:    remaining,
		Half:    remaining.Div(two).RoundDown(2),
		Quarter: remaining.Div(four).RoundDown(2),
	}
}
