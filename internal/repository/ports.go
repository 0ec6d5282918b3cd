// Package repository declares the storage boundary consumed by the services.
package repository

import (
	"context"

	"ledger/internal/access"
	"ledger/internal/core"
	"ledger/internal/filter"
)

// Ports for outbound adapters.
type (
	ExpenseReader interface {
		// ListExpenses returns the expenses inside scope that match c, in
		// canonical order. Implementations may push c down to the store.
		ListExpenses(ctx context.Context, scope access.Scope, c filter.Criteria) ([]core.Expense, error)
		// GetExpense returns core.ErrNotFound for unknown ids.
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	BudgetStore interface {
		// GetBudget returns nil, nil when no budget is set for the period.
		GetBudget(ctx context.Context, userID int64, p core.Period) (*core.Budget, error)
		// UpsertBudget creates or overwrites the single budget of a user-month.
		UpsertBudget(ctx context.Context, userID int64, p core.Period, amount core.Money) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		// AddCategory returns core.ErrConflict for duplicate names.
		AddCategory(ctx context.Context, c core.Category) error
	}

	UserStore interface {
		// CreateUser returns core.ErrConflict for a taken username.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByID(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
	}

	Repository interface {
		ExpenseReader
		ExpenseWriter
		BudgetStore
		CategoryStore
		UserStore
		Close() error
	}
)
