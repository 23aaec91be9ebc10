package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, customer_id, order_id, transaction_type, transaction_date, amount,
	COALESCE(description, ''), is_debt, COALESCE(idempotency_key, ''), created_at`

func scanTransaction(row interface{ Scan(...any) error }, tx *domain.FinancialTransaction) error {
	return row.Scan(&tx.ID, &tx.CustomerID, &tx.OrderID, &tx.Type, &tx.Date, &tx.Amount,
		&tx.Description, &tx.IsDebt, &tx.IdempotencyKey, &tx.CreatedAt)
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.FinancialTransaction) error {
	logger.EnterMethod("transactionRepository.Create", "customerID", tx.CustomerID, "type", tx.Type, "amount", tx.Amount)

	query := `
		INSERT INTO financial_transactions (
			customer_id, order_id, transaction_type, transaction_date, amount,
			description, is_debt, idempotency_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	logger.DatabaseCall("INSERT", "financial_transactions", "customerID", tx.CustomerID)
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		tx.CustomerID, tx.OrderID, tx.Type, tx.Date, tx.Amount,
		tx.Description, tx.IsDebt, nullString(tx.IdempotencyKey), time.Now().UTC(),
	).Scan(&tx.ID, &tx.CreatedAt)
	logger.DatabaseResult("INSERT", 1, err, "transactionID", tx.ID)

	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("idempotency key %s already used: %w", tx.IdempotencyKey, domain.ErrConflict)
		}
		logger.ExitMethodWithError("transactionRepository.Create", err, "customerID", tx.CustomerID)
		return err
	}
	logger.ExitMethod("transactionRepository.Create", "transactionID", tx.ID)
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.FinancialTransaction, error) {
	tx := &domain.FinancialTransaction{}
	query := `SELECT ` + transactionColumns + ` FROM financial_transactions WHERE id = $1`
	if err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, id), tx); err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return tx, nil
}

func (r *transactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.FinancialTransaction, error) {
	tx := &domain.FinancialTransaction{}
	query := `SELECT ` + transactionColumns + ` FROM financial_transactions WHERE idempotency_key = $1`
	if err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, key), tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction with idempotency key %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	return tx, nil
}

func (r *transactionRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM financial_transactions
	          WHERE customer_id = $1 ORDER BY transaction_date, id`
	return r.list(ctx, query, customerID)
}

func (r *transactionRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.FinancialTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM financial_transactions
	          WHERE order_id = $1 ORDER BY transaction_date, id`
	return r.list(ctx, query, orderID)
}

func (r *transactionRepository) list(ctx context.Context, query string, arg int64) ([]domain.FinancialTransaction, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.FinancialTransaction
	for rows.Next() {
		var tx domain.FinancialTransaction
		if err := scanTransaction(rows, &tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *transactionRepository) Update(ctx context.Context, tx *domain.FinancialTransaction) error {
	logger.EnterMethod("transactionRepository.Update", "transactionID", tx.ID)

	query := `
		UPDATE financial_transactions SET
			customer_id = $1,
			order_id = $2,
			transaction_date = $3,
			amount = $4,
			description = $5,
			is_debt = $6
		WHERE id = $7
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		tx.CustomerID, tx.OrderID, tx.Date, tx.Amount, tx.Description, tx.IsDebt, tx.ID)
	if err == nil {
		err = expectOneRow(res, "transaction", tx.ID)
	}
	if err != nil {
		logger.ExitMethodWithError("transactionRepository.Update", err, "transactionID", tx.ID)
		return err
	}
	logger.ExitMethod("transactionRepository.Update", "transactionID", tx.ID)
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id int64) error {
	logger.DatabaseCall("DELETE", "financial_transactions", "transactionID", id)
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM financial_transactions WHERE id = $1`, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "transactionID", id)
		return err
	}
	return expectOneRow(res, "transaction", id)
}

// Totals sums a customer's ledger rows in the database. The result feeds the
// aggregate side of balance verification.
func (r *transactionRepository) Totals(ctx context.Context, customerID int64) (domain.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE is_debt AND order_id IS NULL), 0),
			COALESCE(SUM(amount) FILTER (WHERE is_debt AND order_id IS NOT NULL), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT is_debt), 0)
		FROM financial_transactions
		WHERE customer_id = $1
	`
	var t domain.LedgerTotals
	err := conn(ctx, r.db).QueryRowContext(ctx, query, customerID).Scan(&t.UnlinkedDebt, &t.LinkedDebt, &t.Payments)
	return t, err
}
