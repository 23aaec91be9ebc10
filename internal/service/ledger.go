package service

import (
	"context"
	"errors"
	"fmt"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/reconcile"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/utils"
)

type ledgerService struct {
	store repository.Store
	cache Invalidator
}

func NewLedgerService(store repository.Store, cache Invalidator) LedgerService {
	return &ledgerService{store: store, cache: invalidatorOrNop(cache)}
}

// requireCustomer turns a missing customer into a validation failure. Used
// where the customer is an input field rather than the addressed resource.
func requireCustomer(ctx context.Context, store repository.Store, id int64, lock bool) (*domain.Customer, error) {
	get := store.Customers().GetByID
	if lock {
		get = store.Customers().GetForUpdate
	}
	c, err := get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("customerId", "customer not found")
	}
	return c, err
}

func transactionDate(in PaymentInput) PaymentInput {
	if in.Date.IsZero() {
		in.Date = utcNow()
	}
	in.Date = utils.StartOfDay(in.Date)
	return in
}

// AddOpeningBalance records carried-over debt for a customer.
func (s *ledgerService) AddOpeningBalance(ctx context.Context, customerID int64, in PaymentInput) (*EntryResult, error) {
	logger.EnterMethod("ledgerService.AddOpeningBalance", "customerID", customerID, "amount", in.Amount)

	if !in.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	return s.recordOpening(ctx, "ledgerService.AddOpeningBalance", customerID, domain.TransactionTypeOpeningDebt, in, nil)
}

// PayOpeningBalance records a payment against the opening pool. The amount may
// not exceed what remains of the pool.
func (s *ledgerService) PayOpeningBalance(ctx context.Context, customerID int64, in PaymentInput) (*EntryResult, error) {
	logger.EnterMethod("ledgerService.PayOpeningBalance", "customerID", customerID, "amount", in.Amount)

	if !in.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	withinPool := func(ctx context.Context, customer *domain.Customer) error {
		rows, err := s.store.Transactions().ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		detail := reconcile.OpeningDetail(*customer, rows)
		if in.Amount.GreaterThan(detail.RemainingAmount) {
			return domain.NewValidationError("amount", "amount cannot exceed remaining opening balance")
		}
		return nil
	}
	return s.recordOpening(ctx, "ledgerService.PayOpeningBalance", customerID, domain.TransactionTypeOpeningPayment, in, withinPool)
}

// recordOpening appends an opening pool row of kind typ. check runs inside the
// transaction with the customer locked.
func (s *ledgerService) recordOpening(ctx context.Context, method string, customerID int64, typ domain.TransactionType,
	in PaymentInput, check func(ctx context.Context, customer *domain.Customer) error) (*EntryResult, error) {
	if in.IdempotencyKey != "" {
		existing, err := s.lookupReplay(ctx, customerID, typ, in.IdempotencyKey)
		if err != nil {
			logger.ExitMethodWithError(method, err, "customerID", customerID)
			return nil, err
		}
		if existing != nil {
			logger.ExitMethod(method, "transactionID", existing.ID, "replayed", true)
			return &EntryResult{Transaction: existing, Replayed: true}, nil
		}
	}
	in = transactionDate(in)

	tx := &domain.FinancialTransaction{
		CustomerID:     customerID,
		Type:           typ,
		Date:           in.Date,
		Amount:         in.Amount,
		Description:    in.Description,
		IsDebt:         typ == domain.TransactionTypeOpeningDebt,
		IdempotencyKey: in.IdempotencyKey,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := requireCustomer(ctx, s.store, customerID, true)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, customer); err != nil {
				return err
			}
		}
		return s.store.Transactions().Create(ctx, tx)
	})
	if err != nil {
		// A concurrent request with the same key won the insert.
		if in.IdempotencyKey != "" && errors.Is(err, domain.ErrConflict) {
			if existing, lookupErr := s.lookupReplay(ctx, customerID, typ, in.IdempotencyKey); lookupErr != nil {
				err = lookupErr
			} else if existing != nil {
				logger.ExitMethod(method, "transactionID", existing.ID, "replayed", true)
				return &EntryResult{Transaction: existing, Replayed: true}, nil
			}
		}
		logger.ExitMethodWithError(method, err, "customerID", customerID)
		return nil, err
	}

	s.cache.InvalidateTag(CustomerTag(customerID))
	logger.ExitMethod(method, "transactionID", tx.ID)
	return &EntryResult{Transaction: tx}, nil
}

// lookupReplay returns the row stored under key, or nil when the key is
// unused. A key spent on another customer or another kind of movement is a
// conflict.
func (s *ledgerService) lookupReplay(ctx context.Context, customerID int64, typ domain.TransactionType, key string) (*domain.FinancialTransaction, error) {
	row, err := s.store.Transactions().GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.CustomerID != customerID || row.OrderID != nil || row.Type != typ {
		return nil, fmt.Errorf("idempotency key %q was used for another operation: %w", key, domain.ErrConflict)
	}
	return row, nil
}

// UpdateTransaction overwrites a ledger row and re-derives its kind. When the
// row is or becomes linked to an order, that order's paid amount is recomputed
// from its payment rows in the same transaction. Order debt rows are refused.
func (s *ledgerService) UpdateTransaction(ctx context.Context, id int64, upd domain.TransactionUpdate) (*domain.FinancialTransaction, error) {
	logger.EnterMethod("ledgerService.UpdateTransaction", "transactionID", id)

	if !upd.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	if upd.Date.IsZero() {
		return nil, domain.NewValidationError("date", "date is required")
	}

	var (
		updated         *domain.FinancialTransaction
		touchedCustomer = map[int64]struct{}{}
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.store.Transactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if tx.IsOrderDebt() {
			return fmt.Errorf("transaction %d is the debt of order %d: %w", tx.ID, *tx.OrderID, domain.ErrConflict)
		}
		previousOrder := tx.OrderID
		touchedCustomer[tx.CustomerID] = struct{}{}

		if upd.CustomerID == 0 {
			upd.CustomerID = tx.CustomerID
		}
		if upd.CustomerID != tx.CustomerID {
			if _, err := requireCustomer(ctx, s.store, upd.CustomerID, false); err != nil {
				return err
			}
		}
		if upd.OrderID != nil {
			if upd.IsDebt {
				return domain.NewValidationError("isDebt", "a debt row cannot be linked to an order")
			}
			order, err := s.store.Orders().GetByID(ctx, *upd.OrderID)
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("orderId", "order not found")
			}
			if err != nil {
				return err
			}
			if order.CustomerID != upd.CustomerID {
				return domain.NewValidationError("orderId", "order belongs to another customer")
			}
		}

		tx.CustomerID = upd.CustomerID
		tx.OrderID = upd.OrderID
		tx.Date = utils.StartOfDay(upd.Date)
		tx.Amount = upd.Amount
		tx.Description = upd.Description
		tx.IsDebt = upd.IsDebt
		tx.Type = domain.TypeFor(tx.IsDebt, tx.OrderID != nil, tx.Type)
		if err := s.store.Transactions().Update(ctx, tx); err != nil {
			return err
		}
		touchedCustomer[tx.CustomerID] = struct{}{}

		for _, orderID := range linkedOrders(previousOrder, tx.OrderID) {
			if err := s.resyncOrder(ctx, orderID); err != nil {
				return err
			}
		}
		updated = tx
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.UpdateTransaction", err, "transactionID", id)
		return nil, err
	}

	for customerID := range touchedCustomer {
		s.cache.InvalidateTag(CustomerTag(customerID))
	}
	logger.ExitMethod("ledgerService.UpdateTransaction", "transactionID", id)
	return updated, nil
}

// DeleteTransaction removes a ledger row. Rows outside any order never change
// an order; order-linked payments re-synchronise their order. Order debt rows
// are refused.
func (s *ledgerService) DeleteTransaction(ctx context.Context, id int64) error {
	logger.EnterMethod("ledgerService.DeleteTransaction", "transactionID", id)

	var customerID int64
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.store.Transactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if tx.IsOrderDebt() {
			return fmt.Errorf("transaction %d is the debt of order %d: %w", tx.ID, *tx.OrderID, domain.ErrConflict)
		}
		customerID = tx.CustomerID
		if err := s.store.Transactions().Delete(ctx, id); err != nil {
			return err
		}
		if tx.OrderID != nil {
			return s.resyncOrder(ctx, *tx.OrderID)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.DeleteTransaction", err, "transactionID", id)
		return err
	}

	s.cache.InvalidateTag(CustomerTag(customerID))
	logger.ExitMethod("ledgerService.DeleteTransaction", "transactionID", id)
	return nil
}

// resyncOrder sets an order's paid amount to the sum of its payment rows.
func (s *ledgerService) resyncOrder(ctx context.Context, orderID int64) error {
	order, err := s.store.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	rows, err := s.store.Transactions().ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	paid := reconcile.LinkedPayments(orderID, rows)
	if paid.Equal(order.PaidAmount) {
		return nil
	}
	if err := order.SyncPaid(paid); err != nil {
		return fmt.Errorf("order %d: %w", orderID, err)
	}
	return s.store.Orders().UpdatePayment(ctx, order)
}

func linkedOrders(before, after *int64) []int64 {
	var ids []int64
	if before != nil {
		ids = append(ids, *before)
	}
	if after != nil && (before == nil || *after != *before) {
		ids = append(ids, *after)
	}
	return ids
}

func (s *ledgerService) ListTransactions(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error) {
	if _, err := s.store.Customers().GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByCustomer(ctx, customerID)
}

func (s *ledgerService) GetOpeningBalanceDetail(ctx context.Context, customerID int64) (*domain.OpeningBalanceDetail, error) {
	customer, err := s.store.Customers().GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Transactions().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	detail := reconcile.OpeningDetail(*customer, rows)
	return &detail, nil
}
