package loans

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"creditdesk/internal/metrics"
	"creditdesk/internal/models"
	"creditdesk/internal/ports"
	"creditdesk/internal/repository/cache"
	"creditdesk/internal/repository/decisions"
	"creditdesk/internal/repository/memory"
	"creditdesk/internal/services/credit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var evalDay = time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	cache   *cache.MemoryScoreCache
	log     *decisions.MemoryLog
	metrics *metrics.Metrics
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.cache = cache.NewMemoryScoreCache()
	s.log = decisions.NewMemoryLog()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = NewService(s.store,
		WithScoreCache(s.cache),
		WithDecisionLog(s.log),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return evalDay }),
	)
}

func (s *ServiceSuite) register(income string) models.Customer {
	c, err := s.svc.RegisterCustomer(s.ctx, RegisterInput{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		MonthlyIncome: d(income),
		PhoneNumber:   "9000000001",
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) seedCustomer(id int64, salary, limit string) {
	errs := s.store.UpsertCustomers(s.ctx, []models.Customer{{
		ID: id, FirstName: "Seed", MonthlySalary: d(salary), ApprovedLimit: d(limit),
	}})
	s.Require().NoError(errors.Join(errs...))
}

// version is the history version of a stored customer.
func (s *ServiceSuite) version(customerID int64) string {
	c, err := s.store.GetCustomer(s.ctx, customerID)
	s.Require().NoError(err)
	s.Require().NotNil(c)
	loans, err := s.store.ListLoans(s.ctx, customerID)
	s.Require().NoError(err)
	return credit.HistoryVersion(*c, loans)
}

func request(customerID int64, amount, rate string, tenure int) credit.Request {
	return credit.Request{CustomerID: customerID, Amount: d(amount), InterestRate: d(rate), Tenure: tenure}
}

func (s *ServiceSuite) TestRegisterCustomer() {
	c := s.register("50000")

	s.Equal(int64(1), c.ID)
	s.Equal("Ada Lovelace", c.Name())
	s.True(c.ApprovedLimit.Equal(d("1800000")))
	s.True(c.CurrentDebt.IsZero())

	stored, err := s.store.GetCustomer(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.True(stored.MonthlySalary.Equal(d("50000")))
}

func (s *ServiceSuite) TestRegisterCustomerRejectsBadInput() {
	_, err := s.svc.RegisterCustomer(s.ctx, RegisterInput{FirstName: "Ada", MonthlyIncome: d("0")})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.RegisterCustomer(s.ctx, RegisterInput{FirstName: "  ", MonthlyIncome: d("1000")})
	s.ErrorIs(err, ErrInvalidInput)

	age := -1
	_, err = s.svc.RegisterCustomer(s.ctx, RegisterInput{FirstName: "Ada", Age: &age, MonthlyIncome: d("1000")})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.RegisterCustomer(s.ctx, RegisterInput{FirstName: "Ada", MonthlyIncome: d("100000000000")})
	s.ErrorIs(err, ErrInvalidInput, "approved limit would not fit the money column")
}

func (s *ServiceSuite) TestCheckEligibilityNewCustomer() {
	c := s.register("50000")

	dec, err := s.svc.CheckEligibility(s.ctx, request(c.ID, "100000", "10", 12))
	s.Require().NoError(err)

	s.True(dec.Approved())
	s.Equal(credit.NewCustomerScore, dec.Score)
	s.Equal("12.01", dec.CorrectedRate().StringFixed(2))
	s.Equal("8885.35", dec.MonthlyInstallment().StringFixed(2))

	cached, ok := s.cache.GetScore(s.ctx, c.ID, evalDay, s.version(c.ID))
	s.True(ok)
	s.Equal(credit.NewCustomerScore, cached)

	entries := s.log.Entries()
	s.Require().Len(entries, 1)
	s.Equal(opEligibility, entries[0].Operation)
	s.True(entries[0].Approved)
	s.Equal("12.01", entries[0].CorrectedRate)
	s.Nil(entries[0].LoanID)
}

func (s *ServiceSuite) TestCheckEligibilityUsesCachedScore() {
	s.seedCustomer(5, "100000", "1000000")
	s.Require().NoError(s.cache.SetScore(s.ctx, 5, evalDay, s.version(5), 5))

	dec, err := s.svc.CheckEligibility(s.ctx, request(5, "10000", "12", 24))
	s.Require().NoError(err)

	reason, rejected := dec.RejectReason()
	s.True(rejected)
	s.Equal(credit.ReasonLowCreditScore, reason)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ScoreCache.WithLabelValues("hit")))
}

func (s *ServiceSuite) TestCheckEligibilityMissingCustomer() {
	dec, err := s.svc.CheckEligibility(s.ctx, request(404, "1000", "10", 6))
	s.Require().NoError(err)

	reason, rejected := dec.RejectReason()
	s.True(rejected)
	s.Equal(credit.ReasonCustomerNotFound, reason)
	s.True(dec.MonthlyInstallment().IsZero())
	s.Equal("10.00", dec.CorrectedRate().StringFixed(2))
}

func (s *ServiceSuite) TestCheckEligibilityInvalidRequest() {
	s.seedCustomer(1, "50000", "1800000")

	_, err := s.svc.CheckEligibility(s.ctx, request(1, "1000", "10", 0))
	s.ErrorIs(err, ErrInvalidInput)
	s.ErrorIs(err, credit.ErrInvalidArgument)
}

func (s *ServiceSuite) TestCreateLoanApproved() {
	c := s.register("50000")
	before := s.version(c.ID)
	s.Require().NoError(s.cache.SetScore(s.ctx, c.ID, evalDay, before, 99))

	res, err := s.svc.CreateLoan(s.ctx, request(c.ID, "100000", "10", 12))
	s.Require().NoError(err)

	s.Require().NotNil(res.LoanID)
	s.True(res.Approved())
	s.Equal(MsgLoanApproved, res.Message)
	s.Equal("8885.35", res.Decision.MonthlyInstallment().StringFixed(2))

	loan, err := s.store.GetLoan(s.ctx, *res.LoanID)
	s.Require().NoError(err)
	s.Require().NotNil(loan)
	s.Equal(c.ID, loan.CustomerID)
	s.Equal("12.01", loan.InterestRate.StringFixed(2))
	s.Equal("8885.35", loan.MonthlyInstallment.StringFixed(2))
	s.Equal(0, loan.EMIsPaidOnTime)
	s.Equal(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), loan.StartDate)
	s.Equal(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC), loan.EndDate)

	_, ok := s.cache.GetScore(s.ctx, c.ID, evalDay, before)
	s.False(ok, "booking a loan drops the cached score")

	entries := s.log.Entries()
	s.Require().Len(entries, 1)
	s.Require().NotNil(entries[0].LoanID)
	s.Equal(*res.LoanID, *entries[0].LoanID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DecisionOutcome.WithLabelValues(opCreate, "approved")))
}

func (s *ServiceSuite) TestCreateLoanMissingCustomer() {
	res, err := s.svc.CreateLoan(s.ctx, request(77, "1000", "10", 6))
	s.Require().NoError(err)

	s.Nil(res.LoanID)
	s.Equal(MsgCustomerNotFound, res.Message)
	s.True(res.Decision.MonthlyInstallment().IsZero())
}

func (s *ServiceSuite) TestCreateLoanRejectedByScore() {
	s.seedCustomer(3, "100000", "100000")
	errs := s.store.UpsertLoans(s.ctx, []models.Loan{{
		ID: 900, CustomerID: 3, Amount: d("150000"), Tenure: 24,
		InterestRate: d("10"), MonthlyInstallment: d("1000"),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}})
	s.Require().NoError(errors.Join(errs...))

	res, err := s.svc.CreateLoan(s.ctx, request(3, "10000", "12", 24))
	s.Require().NoError(err)

	s.Nil(res.LoanID)
	s.Equal(MsgLoanNotApproved, res.Message)
	s.Equal(credit.MinScore, res.Decision.Score)
	s.Equal("470.73", res.Decision.MonthlyInstallment().StringFixed(2))

	loans, err := s.store.ListLoans(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(loans, 1)
}

func (s *ServiceSuite) TestCreateLoanRejectedByAffordability() {
	s.seedCustomer(4, "10000", "1000000")

	res, err := s.svc.CreateLoan(s.ctx, request(4, "100000", "10", 12))
	s.Require().NoError(err)

	s.Nil(res.LoanID)
	s.Equal(MsgLoanNotApproved, res.Message)
	reason, _ := res.Decision.RejectReason()
	s.Equal(credit.ReasonAffordability, reason)
	s.Equal("8791.59", res.Decision.MonthlyInstallment().StringFixed(2))
	s.Equal("10.00", res.Decision.CorrectedRate().StringFixed(2))
}

// Two loans fit under the limit; the third pushes current principal above it
// and scores zero. Concurrent callers must not book more than two.
func (s *ServiceSuite) TestConcurrentCreateRespectsLimit() {
	s.seedCustomer(8, "1000000", "100000")

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.svc.CreateLoan(s.ctx, request(8, "60000", "20", 12))
			if err != nil {
				return
			}
			if res.Approved() {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(2, approved)
	loans, err := s.store.ListLoans(s.ctx, 8)
	s.Require().NoError(err)
	s.Len(loans, 2)
}

func (s *ServiceSuite) TestViewLoan() {
	c := s.register("50000")
	res, err := s.svc.CreateLoan(s.ctx, request(c.ID, "100000", "10", 12))
	s.Require().NoError(err)
	s.Require().NotNil(res.LoanID)

	details, err := s.svc.ViewLoan(s.ctx, *res.LoanID)
	s.Require().NoError(err)
	s.Equal(c.ID, details.Customer.ID)
	s.Equal("Ada", details.Customer.FirstName)
	s.Equal(12, details.Loan.Tenure)

	_, err = s.svc.ViewLoan(s.ctx, 12345)
	s.ErrorIs(err, ErrLoanNotFound)
}

func (s *ServiceSuite) TestCustomerLoans() {
	c := s.register("50000")
	_, err := s.svc.CreateLoan(s.ctx, request(c.ID, "100000", "10", 12))
	s.Require().NoError(err)

	summaries, err := s.svc.CustomerLoans(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(12, summaries[0].RepaymentsLeft)

	_, err = s.svc.CustomerLoans(s.ctx, 999)
	s.ErrorIs(err, ErrCustomerNotFound)
}

// gatedStore holds the first ListLoans call after its snapshot until
// release is closed.
type gatedStore struct {
	*memory.Store
	once     sync.Once
	snapshot chan struct{}
	release  chan struct{}
}

func (g *gatedStore) ListLoans(ctx context.Context, customerID int64) ([]models.Loan, error) {
	loans, err := g.Store.ListLoans(ctx, customerID)
	g.once.Do(func() {
		close(g.snapshot)
		<-g.release
	})
	return loans, err
}

// An eligibility check that read the history before a concurrent booking
// must not leave its score behind for later checks.
func (s *ServiceSuite) TestCheckEligibilityDoesNotCacheOutdatedScore() {
	s.seedCustomer(6, "100000", "200000")
	gated := &gatedStore{Store: s.store, snapshot: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(gated,
		WithScoreCache(s.cache),
		WithClock(func() time.Time { return evalDay }),
	)

	checked := make(chan credit.Decision, 1)
	go func() {
		dec, err := svc.CheckEligibility(s.ctx, request(6, "10000", "12", 12))
		if err == nil {
			checked <- dec
		}
		close(checked)
	}()

	<-gated.snapshot
	res, err := svc.CreateLoan(s.ctx, request(6, "300000", "14", 12))
	s.Require().NoError(err)
	s.Require().True(res.Approved())
	close(gated.release)

	early, ok := <-checked
	s.Require().True(ok)
	s.Equal(credit.NewCustomerScore, early.Score)

	dec, err := svc.CheckEligibility(s.ctx, request(6, "10000", "12", 12))
	s.Require().NoError(err)
	s.Equal(credit.MinScore, dec.Score)
	reason, rejected := dec.RejectReason()
	s.True(rejected)
	s.Equal(credit.ReasonLowCreditScore, reason)
}

type failingStore struct {
	ports.Store
	err error
}

func (f failingStore) GetCustomer(context.Context, int64) (*models.Customer, error) { return nil, f.err }
func (f failingStore) ListLoans(context.Context, int64) ([]models.Loan, error)      { return nil, f.err }

func TestCheckEligibilityPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(failingStore{Store: memory.NewStore(), err: boom})

	_, err := svc.CheckEligibility(context.Background(), request(1, "1000", "10", 6))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
