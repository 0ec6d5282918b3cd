package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/access"
	"ledger/internal/core"
	"ledger/internal/filter"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const expenseColumns = `e.id, e.user_id, u.username, e.category, e.amount_cents, e.description, e.expense_date, e.is_essential`

// ListExpenses pushes scope and criteria down into SQL.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, scope access.Scope, c filter.Criteria) ([]core.Expense, error) {
	if c.EmptyWindow() {
		return []core.Expense{}, nil
	}

	var (
		where []string
		args  []any
	)
	if id, ok := scope.UserID(); ok {
		where = append(where, "e.user_id = ?")
		args = append(args, id)
	}
	if c.UserID != nil {
		where = append(where, "e.user_id = ?")
		args = append(args, *c.UserID)
	}
	if c.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, string(c.Category))
	}
	if !c.From.IsZero() {
		where = append(where, "e.expense_date >= ?")
		args = append(args, c.From.String())
	}
	if !c.To.IsZero() {
		where = append(where, "e.expense_date <= ?")
		args = append(args, c.To.String())
	}
	if c.Essential != nil {
		where = append(where, "e.is_essential = ?")
		args = append(args, boolToInt(*c.Essential))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses e JOIN users u ON u.id = e.user_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.expense_date DESC, e.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// GetExpense retrieves a single expense by ID
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e JOIN users u ON u.id = e.user_id WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category, amount_cents, description, expense_date, is_essential)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, string(e.Category), e.Amount.Cents, e.Description, e.Date.String(), boolToInt(e.Essential))
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", mapConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return id, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET category = ?, amount_cents = ?, description = ?, expense_date = ?, is_essential = ?
		 WHERE id = ?`,
		string(e.Category), e.Amount.Cents, e.Description, e.Date.String(), boolToInt(e.Essential), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", mapConstraint(err))
	}
	return requireAffected(res, "update expense")
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res, "delete expense")
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64, p core.Period) (*core.Budget, error) {
	b := core.Budget{UserID: userID, Period: p}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents, updated_at FROM budgets WHERE user_id = ? AND year = ? AND month = ?`,
		userID, p.Year, p.Month).Scan(&b.Amount.Cents, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

// UpsertBudget leans on the (user_id, year, month) primary key: concurrent
// writers end with the last one winning, never with two rows.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, userID int64, p core.Period, amount core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, year, month, amount_cents, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, year, month)
		 DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = excluded.updated_at`,
		userID, p.Year, p.Month, amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", mapConstraint(err))
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"user_id", userID,
		"period", p.String(),
		"amount_cents", amount.Cents)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, core.Category(name))
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, c core.Category) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, string(c)); err != nil {
		return fmt.Errorf("add category: %w", mapConstraint(err))
	}
	slog.InfoContext(ctx, "Category added", "category", string(c))
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, string(u.Role))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `WHERE username = ?`, username)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u    core.User
		role string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = core.Role(role)
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e         core.Expense
		category  string
		date      string
		essential int64
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Owner, &category, &e.Amount.Cents, &e.Description, &date, &essential)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", e.ID, date, err)
	}
	e.Category = core.Category(category)
	e.Date = d
	e.Essential = essential != 0
	return e, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// mapConstraint translates driver constraint failures into domain errors.
func mapConstraint(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
