// Package memory is an in-process implementation of the repositories. It
// backs the dev server and service tests. Transactions are serialized and a
// failed transaction restores the state it started from.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/repository"
)

type txKey struct{}

type state struct {
	nextID       int64
	customers    map[int64]domain.Customer
	contractors  map[int64]domain.Contractor
	orders       map[int64]domain.Order
	transactions map[int64]domain.FinancialTransaction
	lots         map[int64]domain.StockLot
	movements    map[int64]domain.StockMovement
	users        map[int64]domain.User
	snapshots    map[int64]domain.BalanceSnapshot
}

func newState() *state {
	return &state{
		customers:    make(map[int64]domain.Customer),
		contractors:  make(map[int64]domain.Contractor),
		orders:       make(map[int64]domain.Order),
		transactions: make(map[int64]domain.FinancialTransaction),
		lots:         make(map[int64]domain.StockLot),
		movements:    make(map[int64]domain.StockMovement),
		users:        make(map[int64]domain.User),
		snapshots:    make(map[int64]domain.BalanceSnapshot),
	}
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		nextID:       s.nextID,
		customers:    cloneMap(s.customers),
		contractors:  cloneMap(s.contractors),
		orders:       cloneMap(s.orders),
		transactions: cloneMap(s.transactions),
		lots:         cloneMap(s.lots),
		movements:    cloneMap(s.movements),
		users:        cloneMap(s.users),
		snapshots:    cloneMap(s.snapshots),
	}
}

// Store keeps every entity in maps. Writers hold txMu for the whole
// transaction; data is guarded by mu.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Customers() repository.CustomerRepository       { return customerRepo{s} }
func (s *Store) Contractors() repository.ContractorRepository   { return contractorRepo{s} }
func (s *Store) Orders() repository.OrderRepository             { return orderRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return transactionRepo{s} }
func (s *Store) Stock() repository.StockRepository              { return stockRepo{s} }
func (s *Store) Users() repository.UserRepository               { return userRepo{s} }
func (s *Store) Snapshots() repository.SnapshotRepository       { return snapshotRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write runs fn with exclusive access to the data. Outside a transaction it
// also waits for running transactions so a rollback cannot drop the write.
func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) read(fn func(d *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (d *state) id() int64 {
	d.nextID++
	return d.nextID
}

type customerRepo struct{ s *Store }

func (r customerRepo) Create(ctx context.Context, c *domain.Customer) error {
	return r.s.write(ctx, func(d *state) error {
		c.ID = d.id()
		c.CreatedAt = r.s.now()
		c.UpdatedAt = c.CreatedAt
		d.customers[c.ID] = *c
		return nil
	})
}

func (r customerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var out domain.Customer
	err := r.s.read(func(d *state) error {
		c, ok := d.customers[id]
		if !ok {
			return domain.NotFoundError("customer", id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r customerRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Customer, error) {
	return r.GetByID(ctx, id)
}

func (r customerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	_ = r.s.read(func(d *state) error {
		for _, c := range d.customers {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r customerRepo) Update(ctx context.Context, c *domain.Customer) error {
	return r.s.write(ctx, func(d *state) error {
		old, ok := d.customers[c.ID]
		if !ok {
			return domain.NotFoundError("customer", c.ID)
		}
		c.CreatedAt = old.CreatedAt
		c.UpdatedAt = r.s.now()
		d.customers[c.ID] = *c
		return nil
	})
}

func (r customerRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.customers[id]; !ok {
			return domain.NotFoundError("customer", id)
		}
		delete(d.customers, id)
		for sid, snap := range d.snapshots {
			if snap.CustomerID == id {
				delete(d.snapshots, sid)
			}
		}
		return nil
	})
}

func (r customerRepo) HasActivity(ctx context.Context, id int64) (bool, error) {
	var active bool
	_ = r.s.read(func(d *state) error {
		for _, o := range d.orders {
			if o.CustomerID == id {
				active = true
				return nil
			}
		}
		for _, tx := range d.transactions {
			if tx.CustomerID == id {
				active = true
				return nil
			}
		}
		return nil
	})
	return active, nil
}

type contractorRepo struct{ s *Store }

func (r contractorRepo) Create(ctx context.Context, c *domain.Contractor) error {
	return r.s.write(ctx, func(d *state) error {
		c.ID = d.id()
		c.CreatedAt = r.s.now()
		d.contractors[c.ID] = *c
		return nil
	})
}

func (r contractorRepo) GetByID(ctx context.Context, id int64) (*domain.Contractor, error) {
	var out domain.Contractor
	err := r.s.read(func(d *state) error {
		c, ok := d.contractors[id]
		if !ok {
			return domain.NotFoundError("contractor", id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r contractorRepo) List(ctx context.Context) ([]domain.Contractor, error) {
	var out []domain.Contractor
	_ = r.s.read(func(d *state) error {
		for _, c := range d.contractors {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, o *domain.Order) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.customers[o.CustomerID]; !ok {
			return domain.NotFoundError("customer", o.CustomerID)
		}
		o.ID = d.id()
		o.CreatedAt = r.s.now()
		o.UpdatedAt = o.CreatedAt
		d.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func copyOrder(o domain.Order) domain.Order {
	if o.ShippedDate != nil {
		at := *o.ShippedDate
		o.ShippedDate = &at
	}
	return o
}

func (r orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var out domain.Order
	err := r.s.read(func(d *state) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.NotFoundError("order", id)
		}
		out = copyOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) List(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool {
		return customerID == 0 || o.CustomerID == customerID
	}), nil
}

func (r orderRepo) ListShippedUnpaid(ctx context.Context) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool {
		return o.State() == domain.OrderStateShippedUnpaid
	}), nil
}

func (r orderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	var out []domain.Order
	_ = r.s.read(func(d *state) error {
		for _, o := range d.orders {
			if keep(o) {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r orderRepo) MarkShipped(ctx context.Context, id int64, at time.Time) error {
	return r.s.write(ctx, func(d *state) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.NotFoundError("order", id)
		}
		if err := o.Ship(at); err != nil {
			return err
		}
		o.UpdatedAt = r.s.now()
		d.orders[id] = o
		return nil
	})
}

func (r orderRepo) UpdatePayment(ctx context.Context, o *domain.Order) error {
	return r.s.write(ctx, func(d *state) error {
		stored, ok := d.orders[o.ID]
		if !ok {
			return domain.NotFoundError("order", o.ID)
		}
		stored.PaidAmount = o.PaidAmount
		stored.RemainingAmount = o.RemainingAmount
		stored.IsPayment = o.IsPayment
		stored.UpdatedAt = r.s.now()
		o.UpdatedAt = stored.UpdatedAt
		d.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) TotalVolume(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	_ = r.s.read(func(d *state) error {
		for _, o := range d.orders {
			if o.CustomerID == customerID {
				total = total.Add(o.Line.TaxTotalPrice)
			}
		}
		return nil
	})
	return total, nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, tx *domain.FinancialTransaction) error {
	return r.s.write(ctx, func(d *state) error {
		if tx.IdempotencyKey != "" {
			for _, existing := range d.transactions {
				if existing.IdempotencyKey == tx.IdempotencyKey {
					return fmt.Errorf("idempotency key %s already used: %w", tx.IdempotencyKey, domain.ErrConflict)
				}
			}
		}
		tx.ID = d.id()
		tx.CreatedAt = r.s.now()
		d.transactions[tx.ID] = copyTransaction(*tx)
		return nil
	})
}

func copyTransaction(tx domain.FinancialTransaction) domain.FinancialTransaction {
	if tx.OrderID != nil {
		id := *tx.OrderID
		tx.OrderID = &id
	}
	return tx
}

func (r transactionRepo) GetByID(ctx context.Context, id int64) (*domain.FinancialTransaction, error) {
	var out domain.FinancialTransaction
	err := r.s.read(func(d *state) error {
		tx, ok := d.transactions[id]
		if !ok {
			return domain.NotFoundError("transaction", id)
		}
		out = copyTransaction(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r transactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.FinancialTransaction, error) {
	var out *domain.FinancialTransaction
	_ = r.s.read(func(d *state) error {
		for _, tx := range d.transactions {
			if key != "" && tx.IdempotencyKey == key {
				c := copyTransaction(tx)
				out = &c
				return nil
			}
		}
		return nil
	})
	if out == nil {
		return nil, fmt.Errorf("transaction with idempotency key %s: %w", key, domain.ErrNotFound)
	}
	return out, nil
}

func (r transactionRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.FinancialTransaction, error) {
	return r.filter(func(tx domain.FinancialTransaction) bool { return tx.CustomerID == customerID }), nil
}

func (r transactionRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.FinancialTransaction, error) {
	return r.filter(func(tx domain.FinancialTransaction) bool {
		return tx.OrderID != nil && *tx.OrderID == orderID
	}), nil
}

func (r transactionRepo) filter(keep func(domain.FinancialTransaction) bool) []domain.FinancialTransaction {
	var out []domain.FinancialTransaction
	_ = r.s.read(func(d *state) error {
		for _, tx := range d.transactions {
			if keep(tx) {
				out = append(out, copyTransaction(tx))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r transactionRepo) Update(ctx context.Context, tx *domain.FinancialTransaction) error {
	return r.s.write(ctx, func(d *state) error {
		stored, ok := d.transactions[tx.ID]
		if !ok {
			return domain.NotFoundError("transaction", tx.ID)
		}
		stored.CustomerID = tx.CustomerID
		stored.OrderID = tx.OrderID
		stored.Date = tx.Date
		stored.Amount = tx.Amount
		stored.Description = tx.Description
		stored.IsDebt = tx.IsDebt
		d.transactions[tx.ID] = copyTransaction(stored)
		return nil
	})
}

func (r transactionRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.transactions[id]; !ok {
			return domain.NotFoundError("transaction", id)
		}
		delete(d.transactions, id)
		return nil
	})
}

func (r transactionRepo) Totals(ctx context.Context, customerID int64) (domain.LedgerTotals, error) {
	var t domain.LedgerTotals
	_ = r.s.read(func(d *state) error {
		for _, tx := range d.transactions {
			if tx.CustomerID != customerID {
				continue
			}
			switch {
			case !tx.IsDebt:
				t.Payments = t.Payments.Add(tx.Amount)
			case tx.OrderID != nil:
				t.LinkedDebt = t.LinkedDebt.Add(tx.Amount)
			default:
				t.UnlinkedDebt = t.UnlinkedDebt.Add(tx.Amount)
			}
		}
		return nil
	})
	return t, nil
}

type stockRepo struct{ s *Store }

func (r stockRepo) CreateLot(ctx context.Context, l *domain.StockLot) error {
	return r.s.write(ctx, func(d *state) error {
		l.ID = d.id()
		l.CreatedAt = r.s.now()
		d.lots[l.ID] = *l
		return nil
	})
}

func (r stockRepo) GetLot(ctx context.Context, id int64) (*domain.StockLot, error) {
	var out domain.StockLot
	err := r.s.read(func(d *state) error {
		l, ok := d.lots[id]
		if !ok {
			return domain.NotFoundError("stock lot", id)
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r stockRepo) GetLotForUpdate(ctx context.Context, id int64) (*domain.StockLot, error) {
	return r.GetLot(ctx, id)
}

func (r stockRepo) ListLots(ctx context.Context, stage domain.StockStage) ([]domain.StockLot, error) {
	var out []domain.StockLot
	_ = r.s.read(func(d *state) error {
		for _, l := range d.lots {
			if stage == "" || l.Stage == stage {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r stockRepo) UpdateLotQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error {
	return r.s.write(ctx, func(d *state) error {
		l, ok := d.lots[id]
		if !ok {
			return domain.NotFoundError("stock lot", id)
		}
		l.Quantity = quantity
		d.lots[id] = l
		return nil
	})
}

func (r stockRepo) DeleteLot(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.lots[id]; !ok {
			return domain.NotFoundError("stock lot", id)
		}
		delete(d.lots, id)
		return nil
	})
}

func (r stockRepo) CreateMovement(ctx context.Context, m *domain.StockMovement) error {
	return r.s.write(ctx, func(d *state) error {
		m.ID = d.id()
		m.CreatedAt = r.s.now()
		m.UpdatedAt = m.CreatedAt
		d.movements[m.ID] = *m
		return nil
	})
}

func (r stockRepo) GetMovement(ctx context.Context, id int64) (*domain.StockMovement, error) {
	var out domain.StockMovement
	err := r.s.read(func(d *state) error {
		m, ok := d.movements[id]
		if !ok {
			return domain.NotFoundError("stock movement", id)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r stockRepo) UpdateMovement(ctx context.Context, m *domain.StockMovement) error {
	return r.s.write(ctx, func(d *state) error {
		stored, ok := d.movements[m.ID]
		if !ok {
			return domain.NotFoundError("stock movement", m.ID)
		}
		stored.Status = m.Status
		stored.ResultLotID = m.ResultLotID
		stored.Error = m.Error
		stored.UpdatedAt = r.s.now()
		m.UpdatedAt = stored.UpdatedAt
		d.movements[m.ID] = stored
		return nil
	})
}

func (r stockRepo) CompensateMovement(ctx context.Context, id int64, reason string) (bool, error) {
	var done bool
	err := r.s.write(ctx, func(d *state) error {
		stored, ok := d.movements[id]
		if !ok {
			return domain.NotFoundError("stock movement", id)
		}
		if stored.Status != domain.MovementStatusPending && stored.Status != domain.MovementStatusFailed {
			return nil
		}
		stored.Status = domain.MovementStatusCompensated
		stored.Error = reason
		stored.UpdatedAt = r.s.now()
		d.movements[id] = stored
		done = true
		return nil
	})
	return done, err
}

func (r stockRepo) ListUnsettledMovements(ctx context.Context, before time.Time) ([]domain.StockMovement, error) {
	var out []domain.StockMovement
	_ = r.s.read(func(d *state) error {
		for _, m := range d.movements {
			unsettled := m.Status == domain.MovementStatusPending || m.Status == domain.MovementStatusFailed
			if unsettled && m.UpdatedAt.Before(before) {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Username, u.Username) {
				return fmt.Errorf("username %s taken: %w", u.Username, domain.ErrConflict)
			}
		}
		u.ID = d.id()
		u.CreatedAt = r.s.now()
		d.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out domain.User
	err := r.s.read(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NotFoundError("user", id)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	_ = r.s.read(func(d *state) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) {
				found := u
				out = &found
				return nil
			}
		}
		return nil
	})
	if out == nil {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
	}
	return out, nil
}

type snapshotRepo struct{ s *Store }

func (r snapshotRepo) Create(ctx context.Context, snap *domain.BalanceSnapshot) error {
	return r.s.write(ctx, func(d *state) error {
		snap.ID = d.id()
		d.snapshots[snap.ID] = *snap
		return nil
	})
}

func (r snapshotRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.BalanceSnapshot, error) {
	var out []domain.BalanceSnapshot
	_ = r.s.read(func(d *state) error {
		for _, snap := range d.snapshots {
			if snap.CustomerID == customerID {
				out = append(out, snap)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	return out, nil
}
