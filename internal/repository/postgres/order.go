package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, customer_id, order_date, shipped_date,
	product_name, unit_price, amount, tax_rate, tax_amount, total_price, tax_total_price,
	maturity_day, maturity_date, dolar_rate, euro_rate,
	is_payment, total_order_amount, paid_amount, remaining_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(
		&o.ID, &o.CustomerID, &o.OrderDate, &o.ShippedDate,
		&o.Line.ProductName, &o.Line.UnitPrice, &o.Line.Amount, &o.Line.TaxRate, &o.Line.TaxAmount,
		&o.Line.TotalPrice, &o.Line.TaxTotalPrice,
		&o.Line.MaturityDay, &o.Line.MaturityDate, &o.Line.DolarRate, &o.Line.EuroRate,
		&o.IsPayment, &o.TotalOrderAmount, &o.PaidAmount, &o.RemainingAmount, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	logger.EnterMethod("orderRepository.Create", "customerID", o.CustomerID, "product", o.Line.ProductName)

	query := `
		INSERT INTO orders (
			customer_id, order_date, shipped_date,
			product_name, unit_price, amount, tax_rate, tax_amount, total_price, tax_total_price,
			maturity_day, maturity_date, dolar_rate, euro_rate,
			is_payment, total_order_amount, paid_amount, remaining_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	logger.DatabaseCall("INSERT", "orders", "customerID", o.CustomerID)
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		o.CustomerID, o.OrderDate, o.ShippedDate,
		o.Line.ProductName, o.Line.UnitPrice, o.Line.Amount, o.Line.TaxRate, o.Line.TaxAmount,
		o.Line.TotalPrice, o.Line.TaxTotalPrice,
		o.Line.MaturityDay, o.Line.MaturityDate, o.Line.DolarRate, o.Line.EuroRate,
		o.IsPayment, o.TotalOrderAmount, o.PaidAmount, o.RemainingAmount, now, now,
	).Scan(&o.ID)
	logger.DatabaseResult("INSERT", 1, err, "orderID", o.ID)

	if err != nil {
		logger.ExitMethodWithError("orderRepository.Create", err, "customerID", o.CustomerID)
		return err
	}
	logger.ExitMethod("orderRepository.Create", "orderID", o.ID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepository) get(ctx context.Context, query string, id int64) (*domain.Order, error) {
	o := &domain.Order{}
	if err := scanOrder(conn(ctx, r.db).QueryRowContext(ctx, query, id), o); err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (r *orderRepository) List(ctx context.Context, customerID int64) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if customerID != 0 {
		query += ` WHERE customer_id = $1`
		args = append(args, customerID)
	}
	query += ` ORDER BY order_date DESC, id DESC`
	return r.list(ctx, query, args...)
}

func (r *orderRepository) ListShippedUnpaid(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE shipped_date IS NOT NULL AND is_payment = FALSE
	          ORDER BY maturity_date, id`
	return r.list(ctx, query)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) MarkShipped(ctx context.Context, id int64, at time.Time) error {
	logger.EnterMethod("orderRepository.MarkShipped", "orderID", id)

	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`UPDATE orders SET shipped_date = $1, updated_at = $2 WHERE id = $3 AND shipped_date IS NULL`,
		at, time.Now().UTC(), id)
	if err != nil {
		logger.ExitMethodWithError("orderRepository.MarkShipped", err, "orderID", id)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		logger.ExitMethod("orderRepository.MarkShipped", "orderID", id)
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.NotFoundError("order", id)
	}
	return domain.ErrAlreadyShipped
}

func (r *orderRepository) UpdatePayment(ctx context.Context, o *domain.Order) error {
	logger.EnterMethod("orderRepository.UpdatePayment", "orderID", o.ID, "paid", o.PaidAmount)

	query := `
		UPDATE orders SET
			paid_amount = $1,
			remaining_amount = $2,
			is_payment = $3,
			updated_at = $4
		WHERE id = $5
	`
	o.UpdatedAt = time.Now().UTC()
	res, err := conn(ctx, r.db).ExecContext(ctx, query, o.PaidAmount, o.RemainingAmount, o.IsPayment, o.UpdatedAt, o.ID)
	if err == nil {
		err = expectOneRow(res, "order", o.ID)
	}
	if err != nil {
		logger.ExitMethodWithError("orderRepository.UpdatePayment", err, "orderID", o.ID)
		return err
	}

	logger.ExitMethod("orderRepository.UpdatePayment", "orderID", o.ID)
	return nil
}

func (r *orderRepository) TotalVolume(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tax_total_price), 0) FROM orders WHERE customer_id = $1`, customerID,
	).Scan(&total)
	return total, err
}
