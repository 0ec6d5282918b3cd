package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/services"
)

// Handlers adapts the services to JSON over HTTP.
type Handlers struct {
	expenses *services.ExpenseService
	users    *services.UserService
	tokens   *auth.TokenManager
	ready    func(context.Context) error
}

func NewHandlers(expenses *services.ExpenseService, users *services.UserService, tokens *auth.TokenManager, ready func(context.Context) error) *Handlers {
	return &Handlers{expenses: expenses, users: users, tokens: tokens, ready: ready}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings the storage backend.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Register creates a standard user and logs them in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.issueToken(w, r, http.StatusCreated, u)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, core.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.issueToken(w, r, http.StatusOK, u)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), principal(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewUserResponse(u))
}

func (h *Handlers) issueToken(w http.ResponseWriter, r *http.Request, status int, u core.User) {
	token, exp, err := h.tokens.Generate(u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, TokenResponse{Token: token, ExpiresAt: exp, User: NewUserResponse(u)})
}

// ListExpenses returns the filtered rows with their totals.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	ov, err := h.expenses.Overview(r.Context(), principal(r), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewOverviewResponse(ov))
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	draft, err := req.Expense()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := h.expenses.CreateExpense(r.Context(), principal(r), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewExpenseResponse(e))
}

func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req ExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	draft, err := req.Expense()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	draft.ID = id
	e, err := h.expenses.UpdateExpense(r.Context(), principal(r), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewExpenseResponse(e))
}

func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.expenses.DeleteExpense(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBudget reconciles the month for the caller, or for ?user_id= when the
// caller is privileged.
func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	period, err := ParsePeriodParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, err := targetUser(r, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := h.expenses.Reconcile(r.Context(), p, target, period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewReconciliationResponse(rec))
}

// PutBudget sets the caller's budget. Naming another user is refused, for
// privileged callers too.
func (h *Handlers) PutBudget(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	period, err := ParsePeriodParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, err := targetUser(r, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req BudgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.expenses.SetBudget(r.Context(), p, target, period, amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := h.expenses.Reconcile(r.Context(), p, target, period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewReconciliationResponse(rec))
}

func targetUser(r *http.Request, p core.Principal) (int64, error) {
	v := r.URL.Query().Get("user_id")
	if v == "" {
		return p.UserID, nil
	}
	id, err := parseID(v)
	if err != nil {
		return 0, &core.ValidationError{Field: "user_id", Reason: err.Error()}
	}
	return id, nil
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.expenses.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, string(c))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": names})
}

func (h *Handlers) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := h.expenses.AddCategory(r.Context(), principal(r), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": string(c)})
}
