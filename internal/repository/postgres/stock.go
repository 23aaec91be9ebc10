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

type stockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) repository.StockRepository {
	return &stockRepository{db: db}
}

const lotColumns = `id, stage, product_name, quantity, contractor_id, COALESCE(packaging_type, ''),
	neighborhood_incoming_amount, neighborhood_outgoing_amount, created_at`

func scanLot(row interface{ Scan(...any) error }, l *domain.StockLot) error {
	return row.Scan(&l.ID, &l.Stage, &l.ProductName, &l.Quantity, &l.ContractorID, &l.PackagingType,
		&l.NeighborhoodIncomingAmount, &l.NeighborhoodOutgoingAmount, &l.CreatedAt)
}

func (r *stockRepository) CreateLot(ctx context.Context, l *domain.StockLot) error {
	logger.EnterMethod("stockRepository.CreateLot", "stage", l.Stage, "quantity", l.Quantity)

	query := `
		INSERT INTO stock_lots (
			stage, product_name, quantity, contractor_id, packaging_type,
			neighborhood_incoming_amount, neighborhood_outgoing_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		l.Stage, l.ProductName, l.Quantity, l.ContractorID, nullString(l.PackagingType),
		l.NeighborhoodIncomingAmount, l.NeighborhoodOutgoingAmount, time.Now().UTC(),
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("stockRepository.CreateLot", err, "stage", l.Stage)
		return err
	}
	logger.ExitMethod("stockRepository.CreateLot", "lotID", l.ID)
	return nil
}

func (r *stockRepository) GetLot(ctx context.Context, id int64) (*domain.StockLot, error) {
	return r.getLot(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1`, id)
}

func (r *stockRepository) GetLotForUpdate(ctx context.Context, id int64) (*domain.StockLot, error) {
	return r.getLot(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *stockRepository) getLot(ctx context.Context, query string, id int64) (*domain.StockLot, error) {
	l := &domain.StockLot{}
	if err := scanLot(conn(ctx, r.db).QueryRowContext(ctx, query, id), l); err != nil {
		return nil, notFound(err, "stock lot", id)
	}
	return l, nil
}

func (r *stockRepository) ListLots(ctx context.Context, stage domain.StockStage) ([]domain.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots`
	var args []any
	if stage != "" {
		query += ` WHERE stage = $1`
		args = append(args, stage)
	}
	query += ` ORDER BY created_at, id`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []domain.StockLot
	for rows.Next() {
		var l domain.StockLot
		if err := scanLot(rows, &l); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func (r *stockRepository) UpdateLotQuantity(ctx context.Context, id int64, quantity decimal.Decimal) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE stock_lots SET quantity = $1 WHERE id = $2`, quantity, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "stock lot", id)
}

func (r *stockRepository) DeleteLot(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM stock_lots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "stock lot", id)
}

const movementColumns = `id, source_lot_id, target_stage, quantity, contractor_id, COALESCE(packaging_type, ''),
	neighborhood_incoming_amount, status, result_lot_id, COALESCE(error, ''), created_at, updated_at`

func scanMovement(row interface{ Scan(...any) error }, m *domain.StockMovement) error {
	return row.Scan(&m.ID, &m.SourceLotID, &m.TargetStage, &m.Quantity, &m.ContractorID, &m.PackagingType,
		&m.NeighborhoodIncomingAmount, &m.Status, &m.ResultLotID, &m.Error, &m.CreatedAt, &m.UpdatedAt)
}

func (r *stockRepository) CreateMovement(ctx context.Context, m *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (
			source_lot_id, target_stage, quantity, contractor_id, packaging_type,
			neighborhood_incoming_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	logger.DatabaseCall("INSERT", "stock_movements", "sourceLotID", m.SourceLotID)
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		m.SourceLotID, m.TargetStage, m.Quantity, m.ContractorID, nullString(m.PackagingType),
		m.NeighborhoodIncomingAmount, m.Status, now, now,
	).Scan(&m.ID)
	logger.DatabaseResult("INSERT", 1, err, "movementID", m.ID)
	return err
}

func (r *stockRepository) GetMovement(ctx context.Context, id int64) (*domain.StockMovement, error) {
	m := &domain.StockMovement{}
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	if err := scanMovement(conn(ctx, r.db).QueryRowContext(ctx, query, id), m); err != nil {
		return nil, notFound(err, "stock movement", id)
	}
	return m, nil
}

func (r *stockRepository) UpdateMovement(ctx context.Context, m *domain.StockMovement) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE stock_movements SET status = $1, result_lot_id = $2, error = $3, updated_at = $4 WHERE id = $5`,
		m.Status, m.ResultLotID, nullString(m.Error), m.UpdatedAt, m.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "stock movement", m.ID)
}

func (r *stockRepository) CompensateMovement(ctx context.Context, id int64, reason string) (bool, error) {
	query := `
		UPDATE stock_movements SET status = $1, error = $2, updated_at = $3
		WHERE id = $4 AND status IN ('PENDING', 'FAILED')
	`
	logger.DatabaseCall("UPDATE", "stock_movements", "movementID", id)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, domain.MovementStatusCompensated, reason, time.Now().UTC(), id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "movementID", id)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "movementID", id)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *stockRepository) ListUnsettledMovements(ctx context.Context, before time.Time) ([]domain.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
	          WHERE status IN ('PENDING', 'FAILED') AND updated_at < $1
	          ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		if err := scanMovement(rows, &m); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
