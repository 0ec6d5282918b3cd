package services

import (
	"context"
	"fmt"
	"strings"

	"ledger/internal/access"
	"ledger/internal/aggregate"
	"ledger/internal/amqp"
	"ledger/internal/budget"
	"ledger/internal/core"
	"ledger/internal/filter"
	"ledger/internal/log"
	"ledger/internal/repository"
)

// Publisher announces committed changes. A nil Publisher disables events.
type Publisher interface {
	Publish(ctx context.Context, msg amqp.ChangeMessage) error
}

// Overview is a listing together with the totals of the listed rows.
type Overview struct {
	Expenses []core.Expense
	Totals   aggregate.Totals
}

// ExpenseService runs every expense, budget and category operation on
// behalf of a principal. It holds no state between calls.
type ExpenseService struct {
	repo      repository.Repository
	publisher Publisher
	logger    *log.Logger
}

func NewExpenseService(repo repository.Repository, publisher Publisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// List returns the expenses visible to p that match c, in canonical order.
func (s *ExpenseService) List(ctx context.Context, p core.Principal, c filter.Criteria) ([]core.Expense, error) {
	policy := access.For(p)
	if err := c.Authorize(policy); err != nil {
		return nil, err
	}

	known, err := s.categorySet(ctx)
	if err != nil {
		return nil, err
	}
	scope, ok := c.Scope(policy.Scope())
	if !ok || c.EmptyWindow() || (c.Category != "" && !known.Contains(c.Category)) {
		return []core.Expense{}, nil
	}

	rows, err := s.repo.ListExpenses(ctx, scope, c)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	visible := make([]core.Expense, 0, len(rows))
	for _, e := range rows {
		if scope.Includes(e.UserID) {
			visible = append(visible, e)
		}
	}
	out := filter.Apply(visible, c, known)
	filter.Sort(out)

	s.logger.DebugContext(ctx, "Listed expenses",
		log.FieldActorID, p.UserID,
		log.FieldCount, len(out))
	return out, nil
}

// Summarize aggregates the expenses List would return.
func (s *ExpenseService) Summarize(ctx context.Context, p core.Principal, c filter.Criteria) (aggregate.Totals, error) {
	rows, err := s.List(ctx, p, c)
	if err != nil {
		return aggregate.Totals{}, err
	}
	return aggregate.Of(rows), nil
}

// Overview lists and aggregates in one pass over the same snapshot.
func (s *ExpenseService) Overview(ctx context.Context, p core.Principal, c filter.Criteria) (Overview, error) {
	rows, err := s.List(ctx, p, c)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Expenses: rows, Totals: aggregate.Of(rows)}, nil
}

// Reconcile builds the budget view of userID for period. Budgets outside the
// caller's reach are reported as not found.
func (s *ExpenseService) Reconcile(ctx context.Context, p core.Principal, userID int64, period core.Period) (budget.Reconciliation, error) {
	if err := period.Validate(); err != nil {
		return budget.Reconciliation{}, err
	}
	policy := access.For(p)
	if !policy.CanReadBudget(userID) {
		return budget.Reconciliation{}, core.ErrNotFound
	}
	if userID != p.UserID {
		if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
			return budget.Reconciliation{}, err
		}
	}

	stored, err := s.repo.GetBudget(ctx, userID, period)
	if err != nil {
		return budget.Reconciliation{}, fmt.Errorf("get budget: %w", err)
	}
	month, err := s.repo.ListExpenses(ctx, access.Only(userID), filter.Month(period))
	if err != nil {
		return budget.Reconciliation{}, fmt.Errorf("list month expenses: %w", err)
	}

	r := budget.Reconcile(userID, period, stored, month)
	s.logger.DebugContext(ctx, "Reconciled budget",
		log.FieldActorID, p.UserID,
		log.FieldUserID, userID,
		log.FieldPeriod, period.String(),
		"spent_cents", r.Spent.Cents,
		"budget_set", r.IsSet())
	return r, nil
}

// AuthorizeMutation loads expense id and checks p may change it. Expenses
// outside p's scope are reported as not found.
func (s *ExpenseService) AuthorizeMutation(ctx context.Context, p core.Principal, id int64) (core.Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	policy := access.For(p)
	if !policy.CanView(e.UserID) {
		return core.Expense{}, core.ErrNotFound
	}
	if !policy.CanMutate(e) {
		return core.Expense{}, core.ErrUnauthorized
	}
	return e, nil
}

// CreateExpense records e as owned by p, whatever e.UserID says.
func (s *ExpenseService) CreateExpense(ctx context.Context, p core.Principal, e core.Expense) (core.Expense, error) {
	e.ID = 0
	e.UserID = p.UserID
	e.Description = strings.TrimSpace(e.Description)
	if err := s.validate(ctx, e); err != nil {
		return core.Expense{}, err
	}

	id, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(e.ID, e.UserID, e.Amount.Cents, string(e.Category)).
			ToSlice()...)
	s.publishExpense(ctx, p, amqp.ActionCreated, e)
	return e, nil
}

// UpdateExpense replaces the mutable fields of expense e.ID. The owner never
// changes.
func (s *ExpenseService) UpdateExpense(ctx context.Context, p core.Principal, e core.Expense) (core.Expense, error) {
	current, err := s.AuthorizeMutation(ctx, p, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	e.UserID = current.UserID
	e.Owner = current.Owner
	e.Description = strings.TrimSpace(e.Description)
	if err := s.validate(ctx, e); err != nil {
		return core.Expense{}, err
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithActor(p.UserID, p.Role.String()).
			WithExpense(e.ID, e.UserID, e.Amount.Cents, string(e.Category)).
			ToSlice()...)
	s.publishExpense(ctx, p, amqp.ActionUpdated, e)
	if old := core.PeriodOf(current.Date); old != core.PeriodOf(e.Date) {
		s.publishExpense(ctx, p, amqp.ActionUpdated, current)
	}
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, p core.Principal, id int64) error {
	current, err := s.AuthorizeMutation(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.NewFields().
			WithOperation(log.OpDelete).
			WithActor(p.UserID, p.Role.String()).
			WithExpense(current.ID, current.UserID, current.Amount.Cents, string(current.Category)).
			ToSlice()...)
	s.publishExpense(ctx, p, amqp.ActionDeleted, current)
	return nil
}

// SetBudget upserts p's own budget for period. Nobody, privileged or not,
// may write another user's budget.
func (s *ExpenseService) SetBudget(ctx context.Context, p core.Principal, userID int64, period core.Period, amount core.Money) error {
	if !access.For(p).CanSetBudget(userID) {
		return core.ErrUnauthorized
	}
	if err := period.Validate(); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpsertBudget(ctx, userID, period, amount); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldOperation, log.OpUpsert,
		log.FieldUserID, userID,
		log.FieldPeriod, period.String(),
		log.FieldAmountCents, amount.Cents)

	msg := amqp.NewChangeMessage(amqp.EntityBudget, amqp.ActionSet, p.UserID)
	msg.UserID = userID
	msg.Period = period.String()
	s.publish(ctx, msg)
	return nil
}

// Categories returns the recognized category set.
func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// AddCategory extends the recognized set. Privileged principals only.
func (s *ExpenseService) AddCategory(ctx context.Context, p core.Principal, name string) (core.Category, error) {
	if !access.For(p).CanManageCategories() {
		return "", core.ErrUnauthorized
	}
	c, err := core.ParseCategory(name)
	if err != nil {
		return "", err
	}
	if err := s.repo.AddCategory(ctx, c); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "Category added", log.FieldCategory, string(c), log.FieldActorID, p.UserID)
	msg := amqp.NewChangeMessage(amqp.EntityCategory, amqp.ActionCreated, p.UserID)
	msg.Category = string(c)
	s.publish(ctx, msg)
	return c, nil
}

func (s *ExpenseService) categorySet(ctx context.Context) (core.CategorySet, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewCategorySet(cats...), nil
}

func (s *ExpenseService) validate(ctx context.Context, e core.Expense) error {
	known, err := s.categorySet(ctx)
	if err != nil {
		return err
	}
	return e.Validate(known)
}

func (s *ExpenseService) publishExpense(ctx context.Context, p core.Principal, action amqp.Action, e core.Expense) {
	msg := amqp.NewChangeMessage(amqp.EntityExpense, action, p.UserID)
	msg.ID = e.ID
	msg.UserID = e.UserID
	msg.Period = core.PeriodOf(e.Date).String()
	msg.Category = string(e.Category)
	s.publish(ctx, msg)
}

// publish never fails the request: the write is already committed.
func (s *ExpenseService) publish(ctx context.Context, msg amqp.ChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change message",
			"routing_key", msg.RoutingKey(),
			log.FieldError, err)
	}
}

// Close closes the repository.
func (s *ExpenseService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
