package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/reconcile"
	"pistachio-backend/internal/repository"
	"pistachio-backend/internal/utils"
)

type orderService struct {
	store    repository.Store
	cache    Invalidator
	debtMode domain.OrderDebtMode
}

func NewOrderService(store repository.Store, cache Invalidator, debtMode domain.OrderDebtMode) OrderService {
	return &orderService{store: store, cache: invalidatorOrNop(cache), debtMode: debtMode}
}

// CreateOrder prices the line and stores the order unpaid. In ledger debt
// mode an ORDER_DEBT row is written in the same transaction.
func (s *orderService) CreateOrder(ctx context.Context, in domain.OrderInput) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "customerID", in.CustomerID, "product", in.ProductName)

	if err := in.Validate(); err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err, "customerID", in.CustomerID)
		return nil, err
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = utcNow()
	}
	in.OrderDate = utils.StartOfDay(in.OrderDate)

	line := utils.PriceLine(in)
	order := &domain.Order{
		CustomerID:       in.CustomerID,
		OrderDate:        in.OrderDate,
		Line:             line,
		TotalOrderAmount: line.TaxTotalPrice,
		PaidAmount:       decimal.Zero,
		RemainingAmount:  line.TaxTotalPrice,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := requireCustomer(ctx, s.store, in.CustomerID, false); err != nil {
			return err
		}
		if err := s.store.Orders().Create(ctx, order); err != nil {
			return err
		}
		if s.debtMode != domain.OrderDebtLedger {
			return nil
		}
		debt := &domain.FinancialTransaction{
			CustomerID:  order.CustomerID,
			OrderID:     &order.ID,
			Type:        domain.TransactionTypeOrderDebt,
			Date:        order.OrderDate,
			Amount:      order.TotalOrderAmount,
			Description: fmt.Sprintf("Order #%d %s", order.ID, line.ProductName),
			IsDebt:      true,
		}
		return s.store.Transactions().Create(ctx, debt)
	})
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err, "customerID", in.CustomerID)
		return nil, err
	}

	s.cache.InvalidateTag(CustomerTag(order.CustomerID))
	logger.ExitMethod("orderService.CreateOrder", "orderID", order.ID, "total", order.TotalOrderAmount)
	return order, nil
}

// ShipOrder moves a preparing order to shipped. Payment fields are untouched.
func (s *orderService) ShipOrder(ctx context.Context, orderID int64, shippedAt time.Time) (*domain.Order, error) {
	logger.EnterMethod("orderService.ShipOrder", "orderID", orderID)

	if shippedAt.IsZero() {
		shippedAt = utcNow()
	}
	if err := s.store.Orders().MarkShipped(ctx, orderID, shippedAt); err != nil {
		logger.ExitMethodWithError("orderService.ShipOrder", err, "orderID", orderID)
		return nil, err
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateTag(CustomerTag(order.CustomerID))
	logger.ExitMethod("orderService.ShipOrder", "orderID", orderID)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.store.Orders().GetByID(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return s.store.Orders().List(ctx, customerID)
}

func (s *orderService) UrgentOrders(ctx context.Context, today time.Time) ([]reconcile.UrgentOrder, error) {
	orders, err := s.store.Orders().ListShippedUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.RankUrgent(orders, today), nil
}
