package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"creditdesk/internal/models"

	"github.com/jackc/pgx/v5"
)

type CustomersRepo struct {
	q     querier
	table string
}

func NewCustomersRepo(q querier, table string) *CustomersRepo {
	return &CustomersRepo{q: q, table: table}
}

const customerColumns = `customer_id, first_name, last_name, age, phone_number,
	monthly_salary, approved_limit, current_debt`

func (r *CustomersRepo) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := r.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM `+r.table+` WHERE customer_id = $1`, id,
	).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Age, &c.PhoneNumber,
		&c.MonthlySalary, &c.ApprovedLimit, &c.CurrentDebt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return &c, nil
}

func (r *CustomersRepo) CreateCustomer(ctx context.Context, c models.Customer) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO `+r.table+` (
			first_name, last_name, age, phone_number,
			monthly_salary, approved_limit, current_debt, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, NOW(), NOW())
		RETURNING customer_id`,
		c.FirstName, c.LastName, c.Age, c.PhoneNumber,
		c.MonthlySalary, c.ApprovedLimit, c.CurrentDebt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}

// UpsertCustomers writes imported customers keyed by their id and returns one
// error slot per row.
func (r *CustomersRepo) UpsertCustomers(ctx context.Context, rows []models.Customer) []error {
	errs := make([]error, len(rows))
	if len(rows) == 0 {
		return errs
	}

	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(`
			INSERT INTO `+r.table+` (
				customer_id, first_name, last_name, age, phone_number,
				monthly_salary, approved_limit, current_debt, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, NOW(), NOW())
			ON CONFLICT (customer_id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				age = COALESCE(EXCLUDED.age, `+r.table+`.age),
				phone_number = COALESCE(NULLIF(EXCLUDED.phone_number, ''), `+r.table+`.phone_number),
				monthly_salary = EXCLUDED.monthly_salary,
				approved_limit = EXCLUDED.approved_limit,
				current_debt = EXCLUDED.current_debt,
				updated_at = NOW()`,
			c.ID, c.FirstName, c.LastName, c.Age, c.PhoneNumber,
			c.MonthlySalary, c.ApprovedLimit, c.CurrentDebt,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			errs[i] = err
		}
	}
	closeErr := br.Close()
	if closeErr != nil {
		log.Printf("[DB][customers][WARN] close batch: %v", closeErr)
	}

	errs = settleBatch(errs, closeErr)
	if !batchFailed(errs) {
		r.syncSequence(ctx)
	}
	return errs
}

// syncSequence moves the id sequence past imported ids so registrations
// after an import do not collide.
func (r *CustomersRepo) syncSequence(ctx context.Context) {
	_, err := r.q.Exec(ctx, `SELECT setval(pg_get_serial_sequence('`+r.table+`', 'customer_id'),
		GREATEST((SELECT MAX(customer_id) FROM `+r.table+`), 1))`)
	if err != nil {
		log.Printf("[DB][customers][WARN] sync sequence: %v", err)
	}
}

func (r *CustomersRepo) ExistingCustomers(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.q.Query(ctx, `SELECT customer_id FROM `+r.table+` WHERE customer_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
