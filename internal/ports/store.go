package ports

import (
	"context"

	"creditdesk/internal/models"
)

// CustomerStore returns a nil customer and no error when the id is unknown.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c models.Customer) (int64, error)
}

type LoanStore interface {
	GetLoan(ctx context.Context, id int64) (*models.Loan, error)
	ListLoans(ctx context.Context, customerID int64) ([]models.Loan, error)
	InsertLoan(ctx context.Context, l models.Loan) (int64, error)
}

type Store interface {
	CustomerStore
	LoanStore

	// WithCustomerLock runs fn while holding the customer's serialization
	// boundary. Reads and writes issued through the Store passed to fn see a
	// consistent view that no concurrent fn for the same customer can change.
	WithCustomerLock(ctx context.Context, customerID int64, fn func(ctx context.Context, s Store) error) error
}

// ImportStore is the write side used by the bulk importer.
type ImportStore interface {
	UpsertCustomers(ctx context.Context, rows []models.Customer) []error
	UpsertLoans(ctx context.Context, rows []models.Loan) []error
	ExistingCustomers(ctx context.Context, ids []int64) (map[int64]bool, error)
}
