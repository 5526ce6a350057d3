package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + DefaultCustomersTable + ` (
		customer_id    BIGSERIAL PRIMARY KEY,
		first_name     TEXT NOT NULL,
		last_name      TEXT NOT NULL DEFAULT '',
		age            INTEGER,
		phone_number   TEXT NOT NULL DEFAULT '',
		monthly_salary NUMERIC(14, 2) NOT NULL,
		approved_limit NUMERIC(14, 2) NOT NULL DEFAULT 0,
		current_debt   NUMERIC(14, 2) NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ` + DefaultLoansTable + ` (
		loan_id           BIGSERIAL PRIMARY KEY,
		customer_id       BIGINT NOT NULL REFERENCES ` + DefaultCustomersTable + ` (customer_id),
		loan_amount       NUMERIC(14, 2) NOT NULL,
		tenure            INTEGER NOT NULL CHECK (tenure >= 1),
		interest_rate     NUMERIC(6, 2) NOT NULL,
		monthly_repayment NUMERIC(14, 2) NOT NULL,
		emis_paid_on_time INTEGER NOT NULL DEFAULT 0,
		start_date        DATE NOT NULL,
		end_date          DATE NOT NULL,
		created_at        TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS loans_customer_id_idx ON ` + DefaultLoansTable + ` (customer_id)`,
}

// EnsureSchema creates the customers and loans tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
