package postgres

import (
	"context"
	"database/sql"
	"time"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/logger"
	"pistachio-backend/internal/repository"
)

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, customer_name, COALESCE(relevant_person, ''), COALESCE(address, ''),
	COALESCE(contact_number, ''), COALESCE(email, ''), created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }, c *domain.Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.RelevantPerson, &c.Address, &c.ContactNumber, &c.Email, &c.CreatedAt, &c.UpdatedAt)
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	logger.EnterMethod("customerRepository.Create", "name", c.Name)

	query := `
		INSERT INTO customers (customer_name, relevant_person, address, contact_number, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	now := time.Now().UTC()
	logger.DatabaseCall("INSERT", "customers", "name", c.Name)
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		c.Name, c.RelevantPerson, c.Address, c.ContactNumber, nullString(c.Email), now, now,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "customerID", c.ID)

	if err != nil {
		logger.ExitMethodWithError("customerRepository.Create", err, "name", c.Name)
		return err
	}
	logger.ExitMethod("customerRepository.Create", "customerID", c.ID)
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	logger.EnterMethod("customerRepository.GetByID", "customerID", id)

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	c := &domain.Customer{}
	if err := scanCustomer(conn(ctx, r.db).QueryRowContext(ctx, query, id), c); err != nil {
		logger.ExitMethodWithError("customerRepository.GetByID", err, "customerID", id)
		return nil, notFound(err, "customer", id)
	}

	logger.ExitMethod("customerRepository.GetByID", "customerID", id)
	return c, nil
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`
	c := &domain.Customer{}
	if err := scanCustomer(conn(ctx, r.db).QueryRowContext(ctx, query, id), c); err != nil {
		return nil, notFound(err, "customer", id)
	}
	return c, nil
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY customer_name, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	logger.EnterMethod("customerRepository.Update", "customerID", c.ID)

	query := `
		UPDATE customers SET
			customer_name = $1,
			relevant_person = $2,
			address = $3,
			contact_number = $4,
			email = $5,
			updated_at = $6
		WHERE id = $7
	`
	c.UpdatedAt = time.Now().UTC()
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.Name, c.RelevantPerson, c.Address, c.ContactNumber, nullString(c.Email), c.UpdatedAt, c.ID,
	)
	if err == nil {
		err = expectOneRow(res, "customer", c.ID)
	}
	if err != nil {
		logger.ExitMethodWithError("customerRepository.Update", err, "customerID", c.ID)
		return err
	}

	logger.ExitMethod("customerRepository.Update", "customerID", c.ID)
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "customer", id)
}

func (r *customerRepository) HasActivity(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM orders WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM financial_transactions WHERE customer_id = $1)
	`
	var active bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&active)
	return active, err
}

type contractorRepository struct {
	db *sql.DB
}

func NewContractorRepository(db *sql.DB) repository.ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(ctx context.Context, c *domain.Contractor) error {
	query := `INSERT INTO contractors (name, contact_number, address, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return conn(ctx, r.db).QueryRowContext(ctx, query, c.Name, c.ContactNumber, c.Address, time.Now().UTC()).
		Scan(&c.ID, &c.CreatedAt)
}

func (r *contractorRepository) GetByID(ctx context.Context, id int64) (*domain.Contractor, error) {
	c := &domain.Contractor{}
	query := `SELECT id, name, COALESCE(contact_number, ''), COALESCE(address, ''), created_at FROM contractors WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.ContactNumber, &c.Address, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "contractor", id)
	}
	return c, nil
}

func (r *contractorRepository) List(ctx context.Context) ([]domain.Contractor, error) {
	query := `SELECT id, name, COALESCE(contact_number, ''), COALESCE(address, ''), created_at FROM contractors ORDER BY name, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contractors []domain.Contractor
	for rows.Next() {
		var c domain.Contractor
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactNumber, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		contractors = append(contractors, c)
	}
	return contractors, rows.Err()
}
