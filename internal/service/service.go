package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/reconcile"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	CreateUser(ctx context.Context, username, password string, role domain.UserRole) (*domain.User, error)
	// EnsureUser creates the user unless one with that name already exists.
	EnsureUser(ctx context.Context, username, password string, role domain.UserRole) error
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, c *domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error

	CreateContractor(ctx context.Context, c *domain.Contractor) error
	ListContractors(ctx context.Context) ([]domain.Contractor, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, in domain.OrderInput) (*domain.Order, error)
	ShipOrder(ctx context.Context, orderID int64, shippedAt time.Time) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	UrgentOrders(ctx context.Context, today time.Time) ([]reconcile.UrgentOrder, error)
}

type LedgerService interface {
	AddOpeningBalance(ctx context.Context, customerID int64, in PaymentInput) (*EntryResult, error)
	PayOpeningBalance(ctx context.Context, customerID int64, in PaymentInput) (*EntryResult, error)
	UpdateTransaction(ctx context.Context, id int64, upd domain.TransactionUpdate) (*domain.FinancialTransaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error)
	GetOpeningBalanceDetail(ctx context.Context, customerID int64) (*domain.OpeningBalanceDetail, error)
}

type PaymentService interface {
	PayOrder(ctx context.Context, orderID int64, in PaymentInput) (*PaymentResult, error)
}

type AccountService interface {
	GetCustomerAccount(ctx context.Context, customerID int64) (*domain.CustomerAccount, error)
	// VerifyBalance compares the derived balance with the store's own sums.
	VerifyBalance(ctx context.Context, customerID int64) ([]reconcile.Mismatch, error)
	TakeSnapshots(ctx context.Context, at time.Time) (int, error)
}

type StockService interface {
	CreateLot(ctx context.Context, lot *domain.StockLot) error
	ListLots(ctx context.Context, stage domain.StockStage) ([]domain.StockLot, error)
	MoveStock(ctx context.Context, in MoveInput) (*domain.StockMovement, error)
	GetMovement(ctx context.Context, id int64) (*domain.StockMovement, error)
	CompensateStale(ctx context.Context, before time.Time) (int, error)
}

type ReminderService interface {
	SendOverdueReminders(ctx context.Context, today time.Time) (int, error)
}

// PaymentInput is a money movement requested by a caller. Date defaults to
// today when zero.
type PaymentInput struct {
	Amount         decimal.Decimal
	Description    string
	Date           time.Time
	IdempotencyKey string
}

// PaymentResult is the outcome of an order payment. Replayed is set when the
// idempotency key matched an earlier payment and nothing was applied.
type PaymentResult struct {
	Order       *domain.Order                `json:"order"`
	Transaction *domain.FinancialTransaction `json:"transaction"`
	Replayed    bool                         `json:"replayed"`
}

// EntryResult is the outcome of an opening balance movement. Replayed is set
// when the idempotency key matched an earlier row of the same kind.
type EntryResult struct {
	Transaction *domain.FinancialTransaction
	Replayed    bool
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// MoveInput asks for quantity of a lot to move to the next stage.
type MoveInput struct {
	SourceLotID                int64             `json:"sourceLotId"`
	TargetStage                domain.StockStage `json:"targetStage"`
	Quantity                   decimal.Decimal   `json:"quantity"`
	ContractorID               *int64            `json:"contractorId"`
	PackagingType              string            `json:"packagingType"`
	NeighborhoodIncomingAmount decimal.Decimal   `json:"neighborhoodIncomingAmount"`
}

// Invalidator drops cached reads for a tag.
type Invalidator interface {
	InvalidateTag(tag string)
}

// CustomerTag is the cache tag shared by every read that depends on a
// customer's orders or ledger rows.
func CustomerTag(customerID int64) string {
	return fmt.Sprintf("customer:%d", customerID)
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateTag(string) {}

func invalidatorOrNop(inv Invalidator) Invalidator {
	if inv == nil {
		return nopInvalidator{}
	}
	return inv
}

func utcNow() time.Time {
	return time.Now().UTC()
}
