package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"creditdesk/internal/services/loans"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) readLoanRequest(w http.ResponseWriter, r *http.Request) (loanRequest, bool) {
	var req loanRequest
	if err := h.decode(w, r, &req); err != nil {
		h.Logger.Printf("[LOANS][REQ][ERR] bad JSON: %v", err)
		h.Error(w, http.StatusBadRequest, "bad JSON: "+err.Error())
		return req, false
	}
	if err := req.validate(); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *Handlers) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readLoanRequest(w, r)
	if !ok {
		return
	}

	dec, err := h.Loans.CheckEligibility(r.Context(), req.toCredit())
	if errors.Is(err, loans.ErrInvalidInput) {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "eligibility check failed")
		return
	}

	h.JSON(w, http.StatusOK, eligibilityResponse{
		CustomerID:            req.CustomerID,
		Approval:              dec.Approved(),
		InterestRate:          money(req.InterestRate),
		CorrectedInterestRate: money(dec.CorrectedRate()),
		Tenure:                req.Tenure,
		MonthlyInstallment:    money(dec.MonthlyInstallment()),
	})
}

func (h *Handlers) CreateLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readLoanRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Loans.CreateLoan(r.Context(), req.toCredit())
	if errors.Is(err, loans.ErrInvalidInput) {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "loan creation failed")
		return
	}

	h.JSON(w, http.StatusOK, createLoanResponse{
		LoanID:             res.LoanID,
		CustomerID:         req.CustomerID,
		LoanApproved:       res.Approved(),
		Message:            res.Message,
		MonthlyInstallment: money(res.Decision.MonthlyInstallment()),
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handlers) ViewLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "loan_id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "loan_id must be a positive integer")
		return
	}

	details, err := h.Loans.ViewLoan(r.Context(), id)
	if errors.Is(err, loans.ErrLoanNotFound) {
		h.Error(w, http.StatusNotFound, "Loan not found")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load loan")
		return
	}

	l, c := details.Loan, details.Customer
	h.JSON(w, http.StatusOK, loanDetailResponse{
		LoanID: l.ID,
		Customer: loanCustomer{
			ID:          c.ID,
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			PhoneNumber: c.PhoneNumber,
			Age:         c.Age,
		},
		LoanAmount:         money(l.Amount),
		InterestRate:       money(l.InterestRate),
		MonthlyInstallment: money(l.MonthlyInstallment),
		Tenure:             l.Tenure,
	})
}

func (h *Handlers) ViewLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "customer_id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "customer_id must be a positive integer")
		return
	}

	summaries, err := h.Loans.CustomerLoans(r.Context(), id)
	if errors.Is(err, loans.ErrCustomerNotFound) {
		h.Error(w, http.StatusNotFound, "Customer not found")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load loans")
		return
	}

	out := make([]customerLoanResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, customerLoanResponse{
			LoanID:             s.Loan.ID,
			LoanAmount:         money(s.Loan.Amount),
			InterestRate:       money(s.Loan.InterestRate),
			MonthlyInstallment: money(s.Loan.MonthlyInstallment),
			RepaymentsLeft:     s.RepaymentsLeft,
		})
	}
	h.JSON(w, http.StatusOK, out)
}
