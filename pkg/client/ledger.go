package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/reconcile"
)

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Payment is a money movement sent to the API. A zero Date means today on
// the server. IdempotencyKey is generated when empty. Remaining, when set, is
// the debt the caller last saw; a payment above it is refused without a
// request.
type Payment struct {
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description,omitempty"`
	Date           string           `json:"date,omitempty"`
	IdempotencyKey string           `json:"-"`
	Remaining      *decimal.Decimal `json:"-"`
}

func (p Payment) validate(bounded bool) error {
	if !p.Amount.IsPositive() {
		return domain.NewValidationError("amount", "amount must be greater than zero")
	}
	if bounded && p.Remaining != nil && p.Amount.GreaterThan(*p.Remaining) {
		return domain.NewValidationError("amount", "amount cannot exceed remaining debt")
	}
	return nil
}

type PaymentResult struct {
	Order       *domain.Order                `json:"order"`
	Transaction *domain.FinancialTransaction `json:"transaction"`
	Replayed    bool                         `json:"replayed"`
}

// Login exchanges credentials for an access token. The client's own session
// is left unchanged.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.mutate(ctx, http.MethodPost, "/api/v1/auth/login", body, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CustomerAccount(ctx context.Context, customerID int64) (*domain.CustomerAccount, error) {
	var account domain.CustomerAccount
	path := fmt.Sprintf("/api/v1/customers/%d/account", customerID)
	if err := c.get(ctx, path, &account, customerTag(customerID), transactionsTag(customerID), ordersTag); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) OpeningBalance(ctx context.Context, customerID int64) (*domain.OpeningBalanceDetail, error) {
	var detail domain.OpeningBalanceDetail
	path := fmt.Sprintf("/api/v1/customers/%d/opening-balance", customerID)
	if err := c.get(ctx, path, &detail, customerTag(customerID), transactionsTag(customerID)); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) Transactions(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error) {
	var txs []domain.FinancialTransaction
	path := fmt.Sprintf("/api/v1/customers/%d/transactions", customerID)
	if err := c.get(ctx, path, &txs, transactionsTag(customerID)); err != nil {
		return nil, err
	}
	return txs, nil
}

// Orders lists orders of a customer, or all orders when customerID is 0.
func (c *Client) Orders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	var orders []domain.Order
	path := "/api/v1/orders"
	tags := []string{ordersTag}
	if customerID > 0 {
		path = fmt.Sprintf("%s?customerId=%d", path, customerID)
		tags = append(tags, customerTag(customerID))
	}
	if err := c.get(ctx, path, &orders, tags...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UrgentOrders(ctx context.Context) ([]reconcile.UrgentOrder, error) {
	var ranked []reconcile.UrgentOrder
	if err := c.get(ctx, "/api/v1/dashboard/urgent-orders", &ranked, ordersTag); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (c *Client) AddOpeningBalance(ctx context.Context, customerID int64, p Payment) (*domain.FinancialTransaction, error) {
	return c.openingMovement(ctx, fmt.Sprintf("/api/v1/customers/%d/opening-balance", customerID), customerID, p, false)
}

// PayOpeningBalance pays against the opening pool. p.Remaining bounds the
// amount before anything is sent.
func (c *Client) PayOpeningBalance(ctx context.Context, customerID int64, p Payment) (*domain.FinancialTransaction, error) {
	return c.openingMovement(ctx, fmt.Sprintf("/api/v1/customers/%d/opening-balance/payments", customerID), customerID, p, true)
}

func (c *Client) openingMovement(ctx context.Context, path string, customerID int64, p Payment, bounded bool) (*domain.FinancialTransaction, error) {
	if err := p.validate(bounded); err != nil {
		return nil, err
	}
	var tx domain.FinancialTransaction
	if err := c.mutate(ctx, http.MethodPost, path, p, c.keyHeader(&p), &tx); err != nil {
		return nil, err
	}
	c.invalidate(customerTag(customerID), transactionsTag(customerID))
	return &tx, nil
}

// PayOrder pays part or all of an order. Retrying with the returned
// transaction's idempotency key never pays twice.
func (c *Client) PayOrder(ctx context.Context, orderID int64, p Payment) (*PaymentResult, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}
	var res PaymentResult
	path := fmt.Sprintf("/api/v1/orders/%d/payments", orderID)
	if err := c.mutate(ctx, http.MethodPost, path, p, c.keyHeader(&p), &res); err != nil {
		return nil, err
	}
	c.invalidate(ordersTag)
	if res.Order != nil {
		c.invalidate(customerTag(res.Order.CustomerID), transactionsTag(res.Order.CustomerID))
	}
	return &res, nil
}

// UpdateTransaction overwrites the ledger row current with upd. Reads of both
// the old and the new owner are dropped, and order reads when either side is
// linked to an order.
func (c *Client) UpdateTransaction(ctx context.Context, current domain.FinancialTransaction, upd domain.TransactionUpdate) (*domain.FinancialTransaction, error) {
	if !upd.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	if upd.Date.IsZero() {
		return nil, domain.NewValidationError("date", "date is required")
	}
	var updated domain.FinancialTransaction
	if err := c.mutate(ctx, http.MethodPut, fmt.Sprintf("/api/v1/transactions/%d", current.ID), upd, nil, &updated); err != nil {
		return nil, err
	}
	c.invalidateRow(current)
	c.invalidateRow(updated)
	return &updated, nil
}

// DeleteTransaction removes the ledger row current.
func (c *Client) DeleteTransaction(ctx context.Context, current domain.FinancialTransaction) error {
	if err := c.mutate(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", current.ID), nil, nil, nil); err != nil {
		return err
	}
	c.invalidateRow(current)
	return nil
}

func (c *Client) invalidateRow(tx domain.FinancialTransaction) {
	c.invalidate(customerTag(tx.CustomerID), transactionsTag(tx.CustomerID))
	if tx.OrderID != nil {
		c.invalidate(ordersTag)
	}
}

// ShipOrder completes an order. A zero at lets the server use now.
func (c *Client) ShipOrder(ctx context.Context, orderID int64, at time.Time) (*domain.Order, error) {
	var body any
	if !at.IsZero() {
		body = map[string]string{"shippedDate": at.UTC().Format(time.RFC3339)}
	}
	var order domain.Order
	if err := c.mutate(ctx, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/ship", orderID), body, nil, &order); err != nil {
		return nil, err
	}
	c.invalidate(ordersTag, customerTag(order.CustomerID))
	return &order, nil
}

func (c *Client) keyHeader(p *Payment) http.Header {
	if p.IdempotencyKey == "" {
		p.IdempotencyKey = c.newKey()
	}
	return http.Header{idempotencyKeyHeader: []string{p.IdempotencyKey}}
}
