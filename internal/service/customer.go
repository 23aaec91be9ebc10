package service

import (
	"context"
	"fmt"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type customerService struct {
	store repository.Store
	cache Invalidator
}

func NewCustomerService(store repository.Store, cache Invalidator) CustomerService {
	return &customerService{store: store, cache: invalidatorOrNop(cache)}
}

func (s *customerService) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.Customers().Create(ctx, c)
}

func (s *customerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.store.Customers().GetByID(ctx, id)
}

func (s *customerService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.store.Customers().List(ctx)
}

func (s *customerService) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.Customers().Update(ctx, c); err != nil {
		return err
	}
	s.cache.InvalidateTag(CustomerTag(c.ID))
	return nil
}

// DeleteCustomer removes a customer that has no orders and no ledger rows.
func (s *customerService) DeleteCustomer(ctx context.Context, id int64) error {
	logger.EnterMethod("customerService.DeleteCustomer", "customerID", id)

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Customers().GetForUpdate(ctx, id); err != nil {
			return err
		}
		active, err := s.store.Customers().HasActivity(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("customer %d still has orders or transactions: %w", id, domain.ErrConflict)
		}
		return s.store.Customers().Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("customerService.DeleteCustomer", err, "customerID", id)
		return err
	}

	s.cache.InvalidateTag(CustomerTag(id))
	logger.ExitMethod("customerService.DeleteCustomer", "customerID", id)
	return nil
}

func (s *customerService) CreateContractor(ctx context.Context, c *domain.Contractor) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.Contractors().Create(ctx, c)
}

func (s *customerService) ListContractors(ctx context.Context) ([]domain.Contractor, error) {
	return s.store.Contractors().List(ctx)
}
