package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/reconcile"
	"pistachio-backend/internal/service"
	"pistachio-backend/internal/utils"
)

// wireDate accepts either a calendar date or an RFC 3339 timestamp.
type wireDate struct {
	time.Time
}

func (d *wireDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := parseWireDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseWireDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", err.Error())
	}
	return t, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        wireDate        `json:"date"`
}

func (p paymentRequest) toInput(idempotencyKey string) service.PaymentInput {
	return service.PaymentInput{
		Amount:         p.Amount,
		Description:    p.Description,
		Date:           p.Date.Time,
		IdempotencyKey: idempotencyKey,
	}
}

type orderRequest struct {
	CustomerID  int64           `json:"customerId"`
	OrderDate   wireDate        `json:"orderDate"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	MaturityDay int             `json:"maturityDay"`
	DolarRate   decimal.Decimal `json:"dolarRate"`
	EuroRate    decimal.Decimal `json:"euroRate"`
}

func (o orderRequest) toInput() domain.OrderInput {
	return domain.OrderInput{
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate.Time,
		ProductName: o.ProductName,
		UnitPrice:   o.UnitPrice,
		Amount:      o.Amount,
		TaxRate:     o.TaxRate,
		MaturityDay: o.MaturityDay,
		DolarRate:   o.DolarRate,
		EuroRate:    o.EuroRate,
	}
}

type shipRequest struct {
	ShippedDate wireDate `json:"shippedDate"`
}

type transactionUpdateRequest struct {
	CustomerID  int64           `json:"customerId"`
	OrderID     *int64          `json:"orderId"`
	Date        wireDate        `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	IsDebt      bool            `json:"isDebt"`
}

func (t transactionUpdateRequest) toUpdate() domain.TransactionUpdate {
	return domain.TransactionUpdate{
		CustomerID:  t.CustomerID,
		OrderID:     t.OrderID,
		Date:        t.Date.Time,
		Amount:      t.Amount,
		Description: t.Description,
		IsDebt:      t.IsDebt,
	}
}

// neighborhoodAmounts takes both spellings the clients have used for the
// neighbourhood figures. Only the canonical field leaves this package.
type neighborhoodAmounts struct {
	Incoming *decimal.Decimal `json:"neighborhoodIncomingAmount"`
	InComing *decimal.Decimal `json:"neighborhoodInComingAmount"`
	Outgoing *decimal.Decimal `json:"neighborhoodOutgoingAmount"`
	OutGoing *decimal.Decimal `json:"neighborhoodOutGoingAmount"`
}

func (n neighborhoodAmounts) normalise() (incoming, outgoing decimal.Decimal, err error) {
	if incoming, err = pickSpelling("neighborhoodIncomingAmount", n.Incoming, n.InComing); err != nil {
		return
	}
	outgoing, err = pickSpelling("neighborhoodOutgoingAmount", n.Outgoing, n.OutGoing)
	return
}

func pickSpelling(field string, canonical, legacy *decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case canonical != nil && legacy != nil && !canonical.Equal(*legacy):
		return decimal.Zero, domain.NewValidationError(field, "conflicting values for "+field)
	case canonical != nil:
		return *canonical, nil
	case legacy != nil:
		return *legacy, nil
	}
	return decimal.Zero, nil
}

type lotRequest struct {
	Stage         domain.StockStage `json:"stage"`
	ProductName   string            `json:"productName"`
	Quantity      decimal.Decimal   `json:"quantity"`
	ContractorID  *int64            `json:"contractorId"`
	PackagingType string            `json:"packagingType"`
	neighborhoodAmounts
}

func (l lotRequest) toLot() (*domain.StockLot, error) {
	incoming, outgoing, err := l.normalise()
	if err != nil {
		return nil, err
	}
	return &domain.StockLot{
		Stage:                      l.Stage,
		ProductName:                l.ProductName,
		Quantity:                   l.Quantity,
		ContractorID:               l.ContractorID,
		PackagingType:              l.PackagingType,
		NeighborhoodIncomingAmount: incoming,
		NeighborhoodOutgoingAmount: outgoing,
	}, nil
}

type moveRequest struct {
	SourceLotID   int64             `json:"sourceLotId"`
	TargetStage   domain.StockStage `json:"targetStage"`
	Quantity      decimal.Decimal   `json:"quantity"`
	ContractorID  *int64            `json:"contractorId"`
	PackagingType string            `json:"packagingType"`
	neighborhoodAmounts
}

func (m moveRequest) toInput() (service.MoveInput, error) {
	incoming, _, err := m.normalise()
	if err != nil {
		return service.MoveInput{}, err
	}
	return service.MoveInput{
		SourceLotID:                m.SourceLotID,
		TargetStage:                m.TargetStage,
		Quantity:                   m.Quantity,
		ContractorID:               m.ContractorID,
		PackagingType:              m.PackagingType,
		NeighborhoodIncomingAmount: incoming,
	}, nil
}

// orderView is an order as the UI reads it, with the pre-filled payment
// amounts for its remaining debt.
type orderView struct {
	*domain.Order
	State        domain.OrderState      `json:"state"`
	QuickAmounts reconcile.QuickAmounts `json:"quickAmounts"`
}

func newOrderView(o *domain.Order) orderView {
	return orderView{Order: o, State: o.State(), QuickAmounts: reconcile.Quick(o.RemainingAmount)}
}
