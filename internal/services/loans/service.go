package loans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"creditdesk/internal/metrics"
	"creditdesk/internal/models"
	"creditdesk/internal/ports"
	"creditdesk/internal/services/credit"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrLoanNotFound     = errors.New("loan not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidInput     = errors.New("invalid input")
)

const (
	MsgLoanApproved     = "Loan approved successfully"
	MsgLoanNotApproved  = "Loan not approved based on credit score and eligibility criteria"
	MsgCustomerNotFound = "Customer not found"
)

const (
	opEligibility = "eligibility"
	opCreate      = "create"
)

type Service struct {
	store     ports.Store
	cache     ports.ScoreCache
	decisions ports.DecisionLog
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithScoreCache(c ports.ScoreCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithDecisionLog(l ports.DecisionLog) Option {
	return func(s *Service) { s.decisions = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the source of the evaluation date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store ports.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return models.DateOf(s.now())
}

// CreateResult is the outcome of a creation attempt. LoanID is set only when
// a loan was booked.
type CreateResult struct {
	LoanID   *int64
	Message  string
	Decision credit.Decision
}

func (r CreateResult) Approved() bool { return r.LoanID != nil }

// CheckEligibility decides a request without booking anything.
func (s *Service) CheckEligibility(ctx context.Context, req credit.Request) (credit.Decision, error) {
	start := time.Now()
	today := s.today()

	var (
		customer *models.Customer
		loans    []models.Loan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.GetCustomer(gctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("fetch customer: %w", err)
		}
		customer = c
		return nil
	})
	g.Go(func() error {
		ls, err := s.store.ListLoans(gctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("fetch loans: %w", err)
		}
		loans = ls
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Printf("[LOANS][ELIGIBILITY][ERR] customer_id=%d err=%v", req.CustomerID, err)
		return credit.Decision{}, err
	}

	score := credit.MinScore
	if customer != nil {
		score = s.score(ctx, *customer, loans, today)
	}

	dec, err := credit.Decide(req, customer, loans, score, today)
	if err != nil {
		return credit.Decision{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	s.metrics.ObserveDecisionLatency(opEligibility, time.Since(start))
	s.record(ctx, opEligibility, req, dec, nil)
	log.Printf("[LOANS][ELIGIBILITY] customer_id=%d score=%d approved=%t rate=%s installment=%s",
		req.CustomerID, dec.Score, dec.Approved(), dec.CorrectedRate(), dec.MonthlyInstallment())
	return dec, nil
}

// CreateLoan decides and books under the customer's lock so that two
// concurrent requests cannot both pass the limit and affordability checks.
func (s *Service) CreateLoan(ctx context.Context, req credit.Request) (CreateResult, error) {
	start := time.Now()
	today := s.today()

	var res CreateResult
	err := s.store.WithCustomerLock(ctx, req.CustomerID, func(ctx context.Context, st ports.Store) error {
		customer, err := st.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("fetch customer: %w", err)
		}
		loans, err := st.ListLoans(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("fetch loans: %w", err)
		}

		dec, err := credit.Evaluate(req, customer, loans, today)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		res.Decision = dec

		if reason, rejected := dec.RejectReason(); rejected {
			res.Message = MsgLoanNotApproved
			if reason == credit.ReasonCustomerNotFound {
				res.Message = MsgCustomerNotFound
			}
			return nil
		}

		id, err := st.InsertLoan(ctx, models.Loan{
			CustomerID:         req.CustomerID,
			Amount:             req.Amount,
			Tenure:             req.Tenure,
			InterestRate:       dec.CorrectedRate(),
			MonthlyInstallment: dec.MonthlyInstallment(),
			EMIsPaidOnTime:     0,
			StartDate:          today,
			EndDate:            models.AddMonths(today, req.Tenure),
		})
		if err != nil {
			return fmt.Errorf("book loan: %w", err)
		}
		res.LoanID = &id
		res.Message = MsgLoanApproved
		return nil
	})
	if err != nil {
		log.Printf("[LOANS][CREATE][ERR] customer_id=%d err=%v", req.CustomerID, err)
		return CreateResult{}, err
	}

	if res.LoanID != nil && s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.CustomerID); err != nil {
			log.Printf("[LOANS][CREATE][WARN] invalidate score customer_id=%d: %v", req.CustomerID, err)
		}
	}

	s.metrics.ObserveDecisionLatency(opCreate, time.Since(start))
	s.record(ctx, opCreate, req, res.Decision, res.LoanID)
	if res.LoanID != nil {
		log.Printf("[LOANS][CREATE][OK] customer_id=%d loan_id=%d rate=%s installment=%s",
			req.CustomerID, *res.LoanID, res.Decision.CorrectedRate(), res.Decision.MonthlyInstallment())
	} else {
		log.Printf("[LOANS][CREATE][REJECT] customer_id=%d score=%d message=%q",
			req.CustomerID, res.Decision.Score, res.Message)
	}
	return res, nil
}

// score reads through the cache keyed by the history version, so a score
// from an outdated snapshot is never served. Cache failures fall back to
// computing.
func (s *Service) score(ctx context.Context, customer models.Customer, loans []models.Loan, today time.Time) int {
	if s.cache == nil {
		return credit.Score(customer, loans, today)
	}

	version := credit.HistoryVersion(customer, loans)
	if v, ok := s.cache.GetScore(ctx, customer.ID, today, version); ok {
		s.metrics.ScoreCacheResult(true)
		return v
	}
	s.metrics.ScoreCacheResult(false)

	score := credit.Score(customer, loans, today)
	if err := s.cache.SetScore(ctx, customer.ID, today, version, score); err != nil {
		log.Printf("[LOANS][SCORE][WARN] cache set customer_id=%d: %v", customer.ID, err)
	}
	return score
}

func outcomeLabel(dec credit.Decision) string {
	if reason, rejected := dec.RejectReason(); rejected {
		return string(reason)
	}
	return "approved"
}

func (s *Service) record(ctx context.Context, op string, req credit.Request, dec credit.Decision, loanID *int64) {
	s.metrics.IncrementOutcome(op, outcomeLabel(dec))
	if s.decisions == nil {
		return
	}

	entry := ports.DecisionEntry{
		ID:                 uuid.NewString(),
		Operation:          op,
		CustomerID:         req.CustomerID,
		LoanAmount:         req.Amount.StringFixed(2),
		RequestedRate:      dec.RequestedRate.StringFixed(2),
		CorrectedRate:      dec.CorrectedRate().StringFixed(2),
		Tenure:             req.Tenure,
		Score:              dec.Score,
		Approved:           dec.Approved(),
		MonthlyInstallment: dec.MonthlyInstallment().StringFixed(2),
		LoanID:             loanID,
		DecidedAt:          s.now().UTC(),
	}
	if reason, rejected := dec.RejectReason(); rejected {
		entry.Reason = string(reason)
	}
	if err := s.decisions.RecordDecision(ctx, entry); err != nil {
		log.Printf("[LOANS][DECISION_LOG][WARN] op=%s customer_id=%d: %v", op, req.CustomerID, err)
	}
}
