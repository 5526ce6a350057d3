package memory

import (
	"context"
	"slices"
	"sync"

	"creditdesk/internal/models"
	"creditdesk/internal/ports"
)

// Store is an in-memory implementation of the customer and loan store.
type Store struct {
	mu        sync.RWMutex
	customers map[int64]models.Customer
	loans     map[int64]models.Loan
	nextCust  int64
	nextLoan  int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		customers: make(map[int64]models.Customer),
		loans:     make(map[int64]models.Loan),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, c models.Customer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCust++
	for s.customers[s.nextCust].ID != 0 {
		s.nextCust++
	}
	c.ID = s.nextCust
	s.customers[c.ID] = c
	return c.ID, nil
}

func (s *Store) GetLoan(_ context.Context, id int64) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) ListLoans(_ context.Context, customerID int64) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Loan, 0)
	for _, l := range s.loans {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b models.Loan) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *Store) InsertLoan(_ context.Context, l models.Loan) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLoan++
	for s.loans[s.nextLoan].ID != 0 {
		s.nextLoan++
	}
	l.ID = s.nextLoan
	s.loans[l.ID] = l
	return l.ID, nil
}

// WithCustomerLock serializes fn per customer id.
func (s *Store) WithCustomerLock(ctx context.Context, customerID int64, fn func(ctx context.Context, st ports.Store) error) error {
	m := s.customerLock(customerID)
	m.Lock()
	defer m.Unlock()
	return fn(ctx, s)
}

func (s *Store) customerLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Store) UpsertCustomers(_ context.Context, rows []models.Customer) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range rows {
		s.customers[c.ID] = c
	}
	return make([]error, len(rows))
}

func (s *Store) UpsertLoans(_ context.Context, rows []models.Loan) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range rows {
		s.loans[l.ID] = l
	}
	return make([]error, len(rows))
}

func (s *Store) ExistingCustomers(_ context.Context, ids []int64) (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.customers[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

var _ ports.Store = (*Store)(nil)
var _ ports.ImportStore = (*Store)(nil)
