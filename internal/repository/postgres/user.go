package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (username, password_hash, role, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, u.Username, u.PasswordHash, u.Role, time.Now().UTC()).
		Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %s taken: %w", u.Username, domain.ErrConflict)
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE LOWER(username) = LOWER($1)`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(ctx context.Context, s *domain.BalanceSnapshot) error {
	query := `INSERT INTO balance_snapshots (customer_id, balance, taken_at) VALUES ($1, $2, $3) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query, s.CustomerID, s.Balance, s.TakenAt).Scan(&s.ID)
}

func (r *snapshotRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.BalanceSnapshot, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, customer_id, balance, taken_at FROM balance_snapshots WHERE customer_id = $1 ORDER BY taken_at DESC`,
		customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.BalanceSnapshot
	for rows.Next() {
		var s domain.BalanceSnapshot
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.Balance, &s.TakenAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
