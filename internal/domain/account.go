package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderDebtMode decides where order debt is read from when folding a balance.
type OrderDebtMode string

const (
	// OrderDebtImplicit sums order totals next to the ledger; orders never
	// produce debt rows.
	OrderDebtImplicit OrderDebtMode = "implicit"
	// OrderDebtLedger writes an ORDER_DEBT row per order and reads order debt
	// from the ledger only.
	OrderDebtLedger OrderDebtMode = "ledger"
)

func (m OrderDebtMode) Valid() bool {
	return m == OrderDebtImplicit || m == OrderDebtLedger
}

// CustomerAccount is the read-side projection behind the account page. It is
// assembled on every read and never persisted.
type CustomerAccount struct {
	CustomerID            int64                  `json:"customerId"`
	CustomerName          string                 `json:"customerName"`
	RelevantPerson        string                 `json:"relevantPerson"`
	Address               string                 `json:"address"`
	ContactNumber         string                 `json:"contactNumber"`
	OpeningBalance        decimal.Decimal        `json:"openingBalance"`
	TotalOrderAmount      decimal.Decimal        `json:"totalOrderAmount"`
	TotalPaymentAmount    decimal.Decimal        `json:"totalPaymentAmount"`
	CurrentBalance        decimal.Decimal        `json:"currentBalance"`
	BalanceVerified       bool                   `json:"balanceVerified"`
	FinancialTransactions []FinancialTransaction `json:"financialTransactions"`
	OrderDetail           []Order                `json:"orderDetail"`
}

// OpeningBalanceDetail describes the carried-over debt pool of a customer.
type OpeningBalanceDetail struct {
	ID               int64           `json:"id"`
	CustomerName     string          `json:"customerName"`
	TotalDevirAmount decimal.Decimal `json:"totalDevirAmount"`
	PaidAmount       decimal.Decimal `json:"paidAmount"`
	RemainingAmount  decimal.Decimal `json:"remainingAmount"`
	IsDebt           bool            `json:"isDebt"`
}

type BalanceSnapshot struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customerId"`
	Balance    decimal.Decimal `json:"balance"`
	TakenAt    time.Time       `json:"takenAt"`
}
