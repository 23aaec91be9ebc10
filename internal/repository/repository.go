package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
)

// Transactor runs fn inside one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction. A nested call reuses the
// outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	// GetForUpdate locks the customer row until the surrounding transaction
	// ends. Writers to the customer's opening pool take this lock.
	GetForUpdate(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	// HasActivity reports whether the customer owns orders or ledger rows.
	HasActivity(ctx context.Context, id int64) (bool, error)
}

type ContractorRepository interface {
	Create(ctx context.Context, c *domain.Contractor) error
	GetByID(ctx context.Context, id int64) (*domain.Contractor, error)
	List(ctx context.Context) ([]domain.Contractor, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// GetForUpdate reads the order and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	// List returns orders of one customer, or all orders when customerID is 0.
	List(ctx context.Context, customerID int64) ([]domain.Order, error)
	ListShippedUnpaid(ctx context.Context) ([]domain.Order, error)
	// MarkShipped sets the shipped date only if the order is not shipped yet.
	// It returns domain.ErrAlreadyShipped otherwise.
	MarkShipped(ctx context.Context, id int64, at time.Time) error
	UpdatePayment(ctx context.Context, o *domain.Order) error
	TotalVolume(ctx context.Context, customerID int64) (decimal.Decimal, error)
}

type TransactionRepository interface {
	// Create inserts the row. A reused idempotency key yields domain.ErrConflict.
	Create(ctx context.Context, tx *domain.FinancialTransaction) error
	GetByID(ctx context.Context, id int64) (*domain.FinancialTransaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.FinancialTransaction, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error)
	ListByOrder(ctx context.Context, orderID int64) ([]domain.FinancialTransaction, error)
	Update(ctx context.Context, tx *domain.FinancialTransaction) error
	Delete(ctx context.Context, id int64) error
	Totals(ctx context.Context, customerID int64) (domain.LedgerTotals, error)
}

type StockRepository interface {
	CreateLot(ctx context.Context, lot *domain.StockLot) error
	GetLot(ctx context.Context, id int64) (*domain.StockLot, error)
	GetLotForUpdate(ctx context.Context, id int64) (*domain.StockLot, error)
	// ListLots returns lots of one stage, or every lot when stage is empty.
	ListLots(ctx context.Context, stage domain.StockStage) ([]domain.StockLot, error)
	UpdateLotQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error
	DeleteLot(ctx context.Context, id int64) error

	CreateMovement(ctx context.Context, m *domain.StockMovement) error
	GetMovement(ctx context.Context, id int64) (*domain.StockMovement, error)
	UpdateMovement(ctx context.Context, m *domain.StockMovement) error
	// CompensateMovement marks a movement COMPENSATED only while it is still
	// PENDING or FAILED, and reports whether it did.
	CompensateMovement(ctx context.Context, id int64, reason string) (bool, error)
	// ListUnsettledMovements returns PENDING and FAILED movements last
	// touched before the cutoff.
	ListUnsettledMovements(ctx context.Context, before time.Time) ([]domain.StockMovement, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type SnapshotRepository interface {
	Create(ctx context.Context, s *domain.BalanceSnapshot) error
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.BalanceSnapshot, error)
}

// Store bundles every repository with the transactor that spans them.
type Store interface {
	Transactor
	Customers() CustomerRepository
	Contractors() ContractorRepository
	Orders() OrderRepository
	Transactions() TransactionRepository
	Stock() StockRepository
	Users() UserRepository
	Snapshots() SnapshotRepository
}
