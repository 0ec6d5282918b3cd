package services

import (
	"context"
	"fmt"

	"ledger/internal/access"
	"ledger/internal/amqp"
	"ledger/internal/budget"
	"ledger/internal/core"
	"ledger/internal/filter"
	"ledger/internal/log"
	"ledger/internal/repository"
)

// BudgetWatcher consumes change messages and re-reconciles the user-month
// each one touches, logging a warning when that month is over budget.
type BudgetWatcher struct {
	repo   repository.Repository
	logger *log.Logger
	alert  func(budget.Reconciliation)
}

func NewBudgetWatcher(repo repository.Repository, logger *log.Logger) *BudgetWatcher {
	return &BudgetWatcher{repo: repo, logger: logger.WithComponent(log.ComponentBudget)}
}

// OnOverBudget registers a callback for months found over budget.
func (w *BudgetWatcher) OnOverBudget(fn func(budget.Reconciliation)) {
	w.alert = fn
}

// Handle matches the amqp consumer handler signature. Messages that carry
// no user-month are acknowledged and ignored.
func (w *BudgetWatcher) Handle(ctx context.Context, msg amqp.ChangeMessage) error {
	if msg.Entity != amqp.EntityExpense && msg.Entity != amqp.EntityBudget {
		return nil
	}
	if msg.UserID == 0 || msg.Period == "" {
		return nil
	}
	period, err := core.ParsePeriod(msg.Period)
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping change message with bad period", log.FieldPeriod, msg.Period)
		return nil
	}

	stored, err := w.repo.GetBudget(ctx, msg.UserID, period)
	if err != nil {
		return fmt.Errorf("get budget: %w", err)
	}
	if stored == nil {
		return nil
	}
	month, err := w.repo.ListExpenses(ctx, access.Only(msg.UserID), filter.Month(period))
	if err != nil {
		return fmt.Errorf("list month expenses: %w", err)
	}

	r := budget.Reconcile(msg.UserID, period, stored, month)
	if r.OverBudget != nil && *r.OverBudget {
		w.logger.WarnContext(ctx, "Month over budget",
			log.FieldUserID, r.UserID,
			log.FieldPeriod, r.Period.String(),
			"budget_cents", r.Budget.Cents,
			"spent_cents", r.Spent.Cents)
		if w.alert != nil {
			w.alert(r)
		}
	}
	return nil
}
