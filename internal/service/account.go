package service

import (
	"context"
	"fmt"
	"time"

	"pistachio-backend/internal/cache"
	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/reconcile"
	"pistachio-backend/internal/repository"
)

type accountService struct {
	store    repository.Store
	cache    cache.Cache[*domain.CustomerAccount]
	ttl      time.Duration
	debtMode domain.OrderDebtMode
}

// NewAccountService builds the account read side. accounts may be nil, in
// which case every read goes to the store.
func NewAccountService(store repository.Store, accounts cache.Cache[*domain.CustomerAccount], ttl time.Duration, debtMode domain.OrderDebtMode) AccountService {
	if accounts == nil {
		accounts = cache.NoopCache[*domain.CustomerAccount]{}
	}
	return &accountService{store: store, cache: accounts, ttl: ttl, debtMode: debtMode}
}

func accountKey(customerID int64) string {
	return fmt.Sprintf("account:%d", customerID)
}

// GetCustomerAccount folds the customer's orders and ledger rows into the
// account view. The store's own sums are compared against the fold; a
// disagreement is logged and reported through BalanceVerified, and the folded
// value is served either way.
func (s *accountService) GetCustomerAccount(ctx context.Context, customerID int64) (*domain.CustomerAccount, error) {
	if cached, ok := s.cache.Get(accountKey(customerID)); ok {
		return cached, nil
	}

	logger.EnterMethod("accountService.GetCustomerAccount", "customerID", customerID)

	customer, err := s.store.Customers().GetByID(ctx, customerID)
	if err != nil {
		logger.ExitMethodWithError("accountService.GetCustomerAccount", err, "customerID", customerID)
		return nil, err
	}
	orders, txs, err := s.load(ctx, customerID)
	if err != nil {
		logger.ExitMethodWithError("accountService.GetCustomerAccount", err, "customerID", customerID)
		return nil, err
	}

	derived := reconcile.ComputeBalance(s.debtMode, orders, txs)
	mismatches, err := s.compareWithAggregates(ctx, customerID, derived)
	if err != nil {
		logger.ExitMethodWithError("accountService.GetCustomerAccount", err, "customerID", customerID)
		return nil, err
	}
	for _, m := range mismatches {
		logger.WarnContext(ctx, "Balance mismatch between ledger fold and store aggregate",
			"customerID", customerID, "field", m.Field, "derived", m.Derived, "aggregate", m.Supplied)
	}

	account := &domain.CustomerAccount{
		CustomerID:            customer.ID,
		CustomerName:          customer.Name,
		RelevantPerson:        customer.RelevantPerson,
		Address:               customer.Address,
		ContactNumber:         customer.ContactNumber,
		OpeningBalance:        derived.OpeningBalance,
		TotalOrderAmount:      derived.TotalOrderAmount,
		TotalPaymentAmount:    derived.TotalPaymentAmount,
		CurrentBalance:        derived.CurrentBalance,
		BalanceVerified:       len(mismatches) == 0,
		FinancialTransactions: txs,
		OrderDetail:           orders,
	}

	s.cache.Set(accountKey(customerID), account, s.ttl, CustomerTag(customerID))
	logger.ExitMethod("accountService.GetCustomerAccount", "customerID", customerID, "balance", account.CurrentBalance)
	return account, nil
}

func (s *accountService) load(ctx context.Context, customerID int64) ([]domain.Order, []domain.FinancialTransaction, error) {
	orders, err := s.store.Orders().List(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.store.Transactions().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	return orders, txs, nil
}

func (s *accountService) compareWithAggregates(ctx context.Context, customerID int64, derived reconcile.Totals) ([]reconcile.Mismatch, error) {
	volume, err := s.store.Orders().TotalVolume(ctx, customerID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.Transactions().Totals(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return reconcile.Verify(derived, reconcile.FromAggregates(s.debtMode, volume, totals)), nil
}

func (s *accountService) VerifyBalance(ctx context.Context, customerID int64) ([]reconcile.Mismatch, error) {
	if _, err := s.store.Customers().GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	orders, txs, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.compareWithAggregates(ctx, customerID, reconcile.ComputeBalance(s.debtMode, orders, txs))
}

// TakeSnapshots stores the current derived balance of every customer. The
// snapshots are for reporting and are never read back as a balance.
func (s *accountService) TakeSnapshots(ctx context.Context, at time.Time) (int, error) {
	logger.EnterMethod("accountService.TakeSnapshots", "at", at)

	customers, err := s.store.Customers().List(ctx)
	if err != nil {
		logger.ExitMethodWithError("accountService.TakeSnapshots", err)
		return 0, err
	}

	taken := 0
	for _, c := range customers {
		orders, txs, err := s.load(ctx, c.ID)
		if err != nil {
			logger.ExitMethodWithError("accountService.TakeSnapshots", err, "customerID", c.ID)
			return taken, err
		}
		totals := reconcile.ComputeBalance(s.debtMode, orders, txs)
		snap := &domain.BalanceSnapshot{CustomerID: c.ID, Balance: totals.CurrentBalance, TakenAt: at}
		if err := s.store.Snapshots().Create(ctx, snap); err != nil {
			logger.ExitMethodWithError("accountService.TakeSnapshots", err, "customerID", c.ID)
			return taken, err
		}
		taken++
	}

	logger.ExitMethod("accountService.TakeSnapshots", "count", taken)
	return taken, nil
}
