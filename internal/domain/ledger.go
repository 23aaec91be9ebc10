package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeOpeningDebt    TransactionType = "OPENING_DEBT"
	TransactionTypeOrderDebt      TransactionType = "ORDER_DEBT"
	TransactionTypeOrderPayment   TransactionType = "ORDER_PAYMENT"
	TransactionTypeOpeningPayment TransactionType = "OPENING_PAYMENT"
	TransactionTypeManualPayment  TransactionType = "MANUAL_PAYMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeOpeningDebt, TransactionTypeOrderDebt, TransactionTypeOrderPayment,
		TransactionTypeOpeningPayment, TransactionTypeManualPayment:
		return true
	}
	return false
}

// FinancialTransaction is one row of a customer's running account. Amount is
// always a positive magnitude; IsDebt carries the direction.
type FinancialTransaction struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customerId"`
	OrderID        *int64          `json:"orderId"`
	Type           TransactionType `json:"transactionType"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	IsDebt         bool            `json:"isDebt"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (t *FinancialTransaction) Validate() error {
	if t.CustomerID <= 0 {
		return NewValidationError("customerId", "customer is required")
	}
	if !t.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	if !t.Type.Valid() {
		return NewValidationError("transactionType", "unknown transaction type")
	}
	return nil
}

// IsOrderLinked reports whether the row belongs to an order rather than to the
// customer's opening pool.
func (t *FinancialTransaction) IsOrderLinked() bool {
	return t.OrderID != nil
}

// IsOrderDebt reports whether the row is the debt an order put on the
// account. Such rows follow their order and are not edited on their own.
func (t *FinancialTransaction) IsOrderDebt() bool {
	return t.IsDebt && t.OrderID != nil
}

// TypeFor derives a row's kind from its direction and order link. A manual
// payment stays manual while it remains outside any order.
func TypeFor(isDebt, orderLinked bool, previous TransactionType) TransactionType {
	switch {
	case isDebt && orderLinked:
		return TransactionTypeOrderDebt
	case isDebt:
		return TransactionTypeOpeningDebt
	case orderLinked:
		return TransactionTypeOrderPayment
	case previous == TransactionTypeManualPayment:
		return TransactionTypeManualPayment
	}
	return TransactionTypeOpeningPayment
}

// TransactionUpdate carries the fields an edit may overwrite.
type TransactionUpdate struct {
	CustomerID  int64           `json:"customerId"`
	OrderID     *int64          `json:"orderId"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	IsDebt      bool            `json:"isDebt"`
}

// LedgerTotals are raw sums over a customer's ledger rows.
type LedgerTotals struct {
	UnlinkedDebt decimal.Decimal
	LinkedDebt   decimal.Decimal
	Payments     decimal.Decimal
}
