package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"creditdesk/internal/models"

	"github.com/jackc/pgx/v5"
)

type LoansRepo struct {
	q     querier
	table string
}

func NewLoansRepo(q querier, table string) *LoansRepo {
	return &LoansRepo{q: q, table: table}
}

const loanColumns = `loan_id, customer_id, loan_amount, tenure, interest_rate,
	monthly_repayment, emis_paid_on_time, start_date, end_date`

func scanLoan(row pgx.Row) (models.Loan, error) {
	var l models.Loan
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.Amount, &l.Tenure, &l.InterestRate,
		&l.MonthlyInstallment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
	)
	return l, err
}

func (r *LoansRepo) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	l, err := scanLoan(r.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM `+r.table+` WHERE loan_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}
	return &l, nil
}

func (r *LoansRepo) ListLoans(ctx context.Context, customerID int64) ([]models.Loan, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+loanColumns+` FROM `+r.table+` WHERE customer_id = $1 ORDER BY loan_id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list loans of customer %d: %w", customerID, err)
	}
	defer rows.Close()

	loans := make([]models.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loans of customer %d: %w", customerID, err)
	}
	return loans, nil
}

func (r *LoansRepo) InsertLoan(ctx context.Context, l models.Loan) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO `+r.table+` (
			customer_id, loan_amount, tenure, interest_rate, monthly_repayment,
			emis_paid_on_time, start_date, end_date, created_at, updated_at
		) VALUES ($1, $2::numeric, $3, $4::numeric, $5::numeric, $6, $7::date, $8::date, NOW(), NOW())
		RETURNING loan_id`,
		l.CustomerID, l.Amount, l.Tenure, l.InterestRate, l.MonthlyInstallment,
		l.EMIsPaidOnTime, l.StartDate, l.EndDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert loan: %w", err)
	}
	return id, nil
}

// UpsertLoans writes imported loans keyed by their id and returns one error
// slot per row.
func (r *LoansRepo) UpsertLoans(ctx context.Context, rows []models.Loan) []error {
	errs := make([]error, len(rows))
	if len(rows) == 0 {
		return errs
	}

	batch := &pgx.Batch{}
	for _, l := range rows {
		batch.Queue(`
			INSERT INTO `+r.table+` (
				loan_id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment,
				emis_paid_on_time, start_date, end_date, created_at, updated_at
			) VALUES ($1, $2, $3::numeric, $4, $5::numeric, $6::numeric, $7, $8::date, $9::date, NOW(), NOW())
			ON CONFLICT (loan_id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				loan_amount = EXCLUDED.loan_amount,
				tenure = EXCLUDED.tenure,
				interest_rate = EXCLUDED.interest_rate,
				monthly_repayment = EXCLUDED.monthly_repayment,
				emis_paid_on_time = EXCLUDED.emis_paid_on_time,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				updated_at = NOW()`,
			l.ID, l.CustomerID, l.Amount, l.Tenure, l.InterestRate, l.MonthlyInstallment,
			l.EMIsPaidOnTime, l.StartDate, l.EndDate,
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
		log.Printf("[DB][loans][WARN] close batch: %v", closeErr)
	}

	errs = settleBatch(errs, closeErr)
	if !batchFailed(errs) {
		r.syncSequence(ctx)
	}
	return errs
}

func (r *LoansRepo) syncSequence(ctx context.Context) {
	_, err := r.q.Exec(ctx, `SELECT setval(pg_get_serial_sequence('`+r.table+`', 'loan_id'),
		GREATEST((SELECT MAX(loan_id) FROM `+r.table+`), 1))`)
	if err != nil {
		log.Printf("[DB][loans][WARN] sync sequence: %v", err)
	}
}
