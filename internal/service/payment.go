package service

import (
	"context"
	"errors"
	"fmt"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type paymentService struct {
	store          repository.Store
	cache          Invalidator
	requireShipped bool
}

// NewPaymentService builds the order payment service. With requireShipped set
// a preparing order refuses payment.
func NewPaymentService(store repository.Store, cache Invalidator, requireShipped bool) PaymentService {
	return &paymentService{store: store, cache: invalidatorOrNop(cache), requireShipped: requireShipped}
}

// PayOrder applies a partial or full payment to an order and records the
// matching ORDER_PAYMENT row in the same transaction. A repeated idempotency
// key returns the first outcome without applying anything.
func (s *paymentService) PayOrder(ctx context.Context, orderID int64, in PaymentInput) (*PaymentResult, error) {
	logger.EnterMethod("paymentService.PayOrder", "orderID", orderID, "amount", in.Amount, "idempotencyKey", in.IdempotencyKey)

	if !in.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}

	if in.IdempotencyKey != "" {
		result, err := s.lookupReplay(ctx, orderID, in.IdempotencyKey)
		if err != nil {
			logger.ExitMethodWithError("paymentService.PayOrder", err, "orderID", orderID)
			return nil, err
		}
		if result != nil {
			logger.ExitMethod("paymentService.PayOrder", "orderID", orderID, "replayed", true)
			return result, nil
		}
	}
	in = transactionDate(in)

	var (
		order *domain.Order
		row   *domain.FinancialTransaction
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.store.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if s.requireShipped && order.ShippedDate == nil {
			return domain.NewValidationError("orderId", "order has not been shipped")
		}
		if err := order.ApplyPayment(in.Amount); err != nil {
			return err
		}
		if err := s.store.Orders().UpdatePayment(ctx, order); err != nil {
			return err
		}

		description := in.Description
		if description == "" {
			description = fmt.Sprintf("Payment for order #%d", order.ID)
		}
		row = &domain.FinancialTransaction{
			CustomerID:     order.CustomerID,
			OrderID:        &order.ID,
			Type:           domain.TransactionTypeOrderPayment,
			Date:           in.Date,
			Amount:         in.Amount,
			Description:    description,
			IsDebt:         false,
			IdempotencyKey: in.IdempotencyKey,
		}
		return s.store.Transactions().Create(ctx, row)
	})
	if err != nil {
		// A concurrent request with the same key won the insert.
		if in.IdempotencyKey != "" && errors.Is(err, domain.ErrConflict) {
			if result, lookupErr := s.lookupReplay(ctx, orderID, in.IdempotencyKey); lookupErr == nil && result != nil {
				logger.ExitMethod("paymentService.PayOrder", "orderID", orderID, "replayed", true)
				return result, nil
			}
		}
		logger.ExitMethodWithError("paymentService.PayOrder", err, "orderID", orderID)
		return nil, err
	}

	s.cache.InvalidateTag(CustomerTag(order.CustomerID))
	logger.ExitMethod("paymentService.PayOrder", "orderID", orderID, "paid", order.PaidAmount, "remaining", order.RemainingAmount)
	return &PaymentResult{Order: order, Transaction: row}, nil
}

// lookupReplay returns the stored outcome for key, or nil when the key is
// unused. A key already spent on another order is a conflict.
func (s *paymentService) lookupReplay(ctx context.Context, orderID int64, key string) (*PaymentResult, error) {
	row, err := s.store.Transactions().GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.OrderID == nil || *row.OrderID != orderID || row.Type != domain.TransactionTypeOrderPayment {
		return nil, fmt.Errorf("idempotency key %q was used for another operation: %w", key, domain.ErrConflict)
	}
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Order: order, Transaction: row, Replayed: true}, nil
}
