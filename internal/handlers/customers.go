package handlers

import (
	"errors"
	"net/http"

	"creditdesk/internal/services/loans"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.Logger.Printf("[REGISTER][REQ][ERR] bad JSON: %v", err)
		h.Error(w, http.StatusBadRequest, "bad JSON: "+err.Error())
		return
	}

	c, err := h.Loans.RegisterCustomer(r.Context(), loans.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		MonthlyIncome: req.MonthlyIncome,
		PhoneNumber:   string(req.PhoneNumber),
	})
	if errors.Is(err, loans.ErrInvalidInput) {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to register customer")
		return
	}

	h.JSON(w, http.StatusCreated, toCustomerResponse(c))
}
