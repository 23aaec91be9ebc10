package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStatePreparing     OrderState = "PREPARING"
	OrderStateShippedUnpaid OrderState = "SHIPPED_UNPAID"
	OrderStateSettled       OrderState = "SETTLED"
)

// OrderLine is the single product line of an order. Prices and FX rates are
// a snapshot taken at order time and are never recomputed.
type OrderLine struct {
	ProductName   string          `json:"productName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Amount        decimal.Decimal `json:"amount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TaxTotalPrice decimal.Decimal `json:"taxTotalPrice"`
	MaturityDay   int             `json:"maturityDay"`
	MaturityDate  time.Time       `json:"maturityDate"`
	DolarRate     decimal.Decimal `json:"dolarRate"`
	EuroRate      decimal.Decimal `json:"euroRate"`
}

type Order struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customerId"`
	OrderDate        time.Time       `json:"orderDate"`
	ShippedDate      *time.Time      `json:"shippedDate"`
	Line             OrderLine       `json:"lines"`
	IsPayment        bool            `json:"isPayment"`
	TotalOrderAmount decimal.Decimal `json:"totalOrderAmount"`
	PaidAmount       decimal.Decimal `json:"paidAmount"`
	RemainingAmount  decimal.Decimal `json:"remainingAmount"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (o *Order) State() OrderState {
	switch {
	case o.IsPayment:
		return OrderStateSettled
	case o.ShippedDate != nil:
		return OrderStateShippedUnpaid
	default:
		return OrderStatePreparing
	}
}

// Ship moves a preparing order to shipped. Payment fields are left alone.
func (o *Order) Ship(at time.Time) error {
	if o.ShippedDate != nil {
		return ErrAlreadyShipped
	}
	shipped := at
	o.ShippedDate = &shipped
	return nil
}

// ApplyPayment adds amount to the paid total. The amount must be positive and
// may not exceed what is still owed on the order.
func (o *Order) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	if amount.GreaterThan(o.RemainingAmount) {
		return NewValidationError("amount", "amount cannot exceed remaining debt")
	}
	o.setPaid(o.PaidAmount.Add(amount))
	return nil
}

// SyncPaid replaces the paid total with the sum of the order's payment rows.
// A settled order may not have its paid total lowered.
func (o *Order) SyncPaid(paid decimal.Decimal) error {
	if paid.IsNegative() {
		return NewValidationError("amount", "paid amount cannot be negative")
	}
	if paid.GreaterThan(o.TotalOrderAmount) {
		return NewValidationError("amount", "amount cannot exceed remaining debt")
	}
	if o.IsPayment && paid.LessThan(o.PaidAmount) {
		return ErrOrderSettled
	}
	o.setPaid(paid)
	return nil
}

func (o *Order) setPaid(paid decimal.Decimal) {
	o.PaidAmount = paid
	o.RemainingAmount = o.TotalOrderAmount.Sub(paid)
	o.IsPayment = !o.RemainingAmount.IsPositive()
}

// OrderInput is what callers provide to create an order; the priced line is
// derived from it.
type OrderInput struct {
	CustomerID  int64           `json:"customerId"`
	OrderDate   time.Time       `json:"orderDate"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	MaturityDay int             `json:"maturityDay"`
	DolarRate   decimal.Decimal `json:"dolarRate"`
	EuroRate    decimal.Decimal `json:"euroRate"`
}

func (in *OrderInput) Validate() error {
	switch {
	case in.CustomerID <= 0:
		return NewValidationError("customerId", "customer is required")
	case in.ProductName == "":
		return NewValidationError("productName", "product name is required")
	case !in.UnitPrice.IsPositive():
		return NewValidationError("unitPrice", "unit price must be greater than zero")
	case !in.Amount.IsPositive():
		return NewValidationError("amount", "amount must be greater than zero")
	case in.TaxRate.IsNegative():
		return NewValidationError("taxRate", "tax rate cannot be negative")
	case in.MaturityDay < 0:
		return NewValidationError("maturityDay", "maturity day cannot be negative")
	case in.DolarRate.IsNegative() || in.EuroRate.IsNegative():
		return NewValidationError("rates", "exchange rates cannot be negative")
	}
	return nil
}
