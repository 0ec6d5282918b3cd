package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/internal/aggregate"
	"ledger/internal/budget"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

// Money is rendered twice: as a decimal string for display and as integer
// cents for exact arithmetic on the client.

type ExpenseResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Owner       string `json:"owner,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Essential   bool   `json:"essential"`
}

type CategoryAmountResponse struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type TotalsResponse struct {
	Total      string                   `json:"total"`
	TotalCents int64                    `json:"total_cents"`
	Count      int                      `json:"count"`
	ByCategory []CategoryAmountResponse `json:"by_category"`
}

type OverviewResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
	Totals   TotalsResponse    `json:"totals"`
}

// ReconciliationResponse omits budget, remaining and over_budget entirely
// when no budget is set for the month.
type ReconciliationResponse struct {
	UserID         int64                    `json:"user_id"`
	Period         string                   `json:"period"`
	Budget         *string                  `json:"budget,omitempty"`
	BudgetCents    *int64                   `json:"budget_cents,omitempty"`
	Spent          string                   `json:"spent"`
	SpentCents     int64                    `json:"spent_cents"`
	Remaining      *string                  `json:"remaining,omitempty"`
	RemainingCents *int64                   `json:"remaining_cents,omitempty"`
	OverBudget     *bool                    `json:"over_budget,omitempty"`
	ByCategory     []CategoryAmountResponse `json:"by_category"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func NewExpenseResponse(e core.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Owner:       e.Owner,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date.String(),
		Essential:   e.Essential,
	}
}

func newBreakdown(rows []aggregate.CategoryAmount) []CategoryAmountResponse {
	out := make([]CategoryAmountResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryAmountResponse{
			Category:    string(row.Category),
			Amount:      row.Amount.String(),
			AmountCents: row.Amount.Cents,
		})
	}
	return out
}

func NewTotalsResponse(t aggregate.Totals) TotalsResponse {
	return TotalsResponse{
		Total:      t.Total.String(),
		TotalCents: t.Total.Cents,
		Count:      t.Count,
		ByCategory: newBreakdown(t.Breakdown()),
	}
}

func NewOverviewResponse(ov services.Overview) OverviewResponse {
	rows := make([]ExpenseResponse, 0, len(ov.Expenses))
	for _, e := range ov.Expenses {
		rows = append(rows, NewExpenseResponse(e))
	}
	return OverviewResponse{Expenses: rows, Totals: NewTotalsResponse(ov.Totals)}
}

func NewReconciliationResponse(r budget.Reconciliation) ReconciliationResponse {
	resp := ReconciliationResponse{
		UserID:     r.UserID,
		Period:     r.Period.String(),
		Spent:      r.Spent.String(),
		SpentCents: r.Spent.Cents,
		ByCategory: newBreakdown(r.ByCategory),
	}
	if r.Budget != nil {
		b, bc := r.Budget.String(), r.Budget.Cents
		resp.Budget, resp.BudgetCents = &b, &bc
	}
	if r.Remaining != nil {
		rem, rc := r.Remaining.String(), r.Remaining.Cents
		resp.Remaining, resp.RemainingCents = &rem, &rc
	}
	if r.OverBudget != nil {
		over := *r.OverBudget
		resp.OverBudget = &over
	}
	return resp
}

func NewUserResponse(u core.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: u.Role.String(), CreatedAt: u.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors onto status codes. Forbidden and
// missing records outside the caller's scope both surface as 404 because
// the services already report them as core.ErrNotFound.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Field: ve.Field, Reason: ve.Reason})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
