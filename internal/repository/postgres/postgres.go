package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

type Store struct {
	db           *sql.DB
	customers    repository.CustomerRepository
	contractors  repository.ContractorRepository
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	stock        repository.StockRepository
	users        repository.UserRepository
	snapshots    repository.SnapshotRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		customers:    NewCustomerRepository(db),
		contractors:  NewContractorRepository(db),
		orders:       NewOrderRepository(db),
		transactions: NewTransactionRepository(db),
		stock:        NewStockRepository(db),
		users:        NewUserRepository(db),
		snapshots:    NewSnapshotRepository(db),
	}
}

func (s *Store) Customers() repository.CustomerRepository       { return s.customers }
func (s *Store) Contractors() repository.ContractorRepository   { return s.contractors }
func (s *Store) Orders() repository.OrderRepository             { return s.orders }
func (s *Store) Transactions() repository.TransactionRepository { return s.transactions }
func (s *Store) Stock() repository.StockRepository              { return s.stock }
func (s *Store) Users() repository.UserRepository               { return s.users }
func (s *Store) Snapshots() repository.SnapshotRepository       { return s.snapshots }

// WithinTx runs fn in a database transaction, committing when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	logger.DatabaseCall("BEGIN", "")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.DatabaseResult("BEGIN", 0, err)
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("COMMIT", 0, err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// notFound maps sql.ErrNoRows to a domain not-found error.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError(entity, id)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOneRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError(entity, id)
	}
	return nil
}
