package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ledger/internal/access"
	"ledger/internal/core"
	"ledger/internal/filter"
)

// RepositoryTestSuite runs against a fresh database file per test.
type RepositoryTestSuite struct {
	suite.Suite
	ctx   context.Context
	path  string
	repo  *SQLiteRepository
	user1 core.User
	user2 core.User
	march core.Period
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "data", "ledger.db")
	repo, err := NewSQLiteRepository(s.path)
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo
	s.march = core.Period{Year: 2025, Month: 3}

	s.user1, err = repo.CreateUser(s.ctx, core.User{Username: "user1", PasswordHash: "x", Role: core.RoleStandard})
	require.NoError(s.T(), err)
	s.user2, err = repo.CreateUser(s.ctx, core.User{Username: "user2", PasswordHash: "x", Role: core.RoleStandard})
	require.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) create(userID int64, cents int64, cat core.Category, d core.Date, essential bool) int64 {
	id, err := s.repo.CreateExpense(s.ctx, core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Category:    cat,
		Description: string(cat),
		Date:        d,
		Essential:   essential,
	})
	require.NoError(s.T(), err)
	return id
}

func (s *RepositoryTestSuite) TestSeededCategories() {
	cats, err := s.repo.ListCategories(s.ctx)
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), core.DefaultCategories, cats)

	assert.ErrorIs(s.T(), s.repo.AddCategory(s.ctx, "Food"), core.ErrConflict)
	require.NoError(s.T(), s.repo.AddCategory(s.ctx, "Travel"))
	cats, _ = s.repo.ListCategories(s.ctx)
	assert.Contains(s.T(), cats, core.Category("Travel"))
}

func (s *RepositoryTestSuite) TestMigrationsAreIdempotent() {
	require.NoError(s.T(), RunMigrations(s.path))
	version, dirty, err := MigrationVersion(s.path)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), version)
	assert.False(s.T(), dirty)
}

func (s *RepositoryTestSuite) TestUsers() {
	got, err := s.repo.GetUserByUsername(s.ctx, "user1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user1.ID, got.ID)
	assert.Equal(s.T(), core.RoleStandard, got.Role)
	assert.False(s.T(), got.CreatedAt.IsZero())

	_, err = s.repo.CreateUser(s.ctx, core.User{Username: "user1", PasswordHash: "y", Role: core.RoleStandard})
	assert.ErrorIs(s.T(), err, core.ErrConflict)

	_, err = s.repo.GetUserByID(s.ctx, 999)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpenseCRUD() {
	id := s.create(s.user1.ID, 2000, "Food", core.NewDate(2025, 3, 4), true)

	got, err := s.repo.GetExpense(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user1.ID, got.UserID)
	assert.Equal(s.T(), "user1", got.Owner)
	assert.Equal(s.T(), core.NewDate(2025, 3, 4), got.Date)
	assert.True(s.T(), got.Essential)

	got.Amount = core.Money{Cents: 2100}
	got.Category = "Bills"
	got.Essential = false
	require.NoError(s.T(), s.repo.UpdateExpense(s.ctx, got))
	got, err = s.repo.GetExpense(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2100), got.Amount.Cents)
	assert.Equal(s.T(), core.Category("Bills"), got.Category)
	assert.False(s.T(), got.Essential)

	require.NoError(s.T(), s.repo.DeleteExpense(s.ctx, id))
	_, err = s.repo.GetExpense(s.ctx, id)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.DeleteExpense(s.ctx, id), core.ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.UpdateExpense(s.ctx, got), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestCreateExpenseForUnknownUser() {
	_, err := s.repo.CreateExpense(s.ctx, core.Expense{UserID: 999, Category: "Food", Date: core.NewDate(2025, 3, 1)})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestListExpensesScopeAndCriteria() {
	a := s.create(s.user1.ID, 2000, "Food", core.NewDate(2025, 3, 4), true)
	b := s.create(s.user1.ID, 1550, "Transport", core.NewDate(2025, 3, 31), false)
	c := s.create(s.user2.ID, 900, "Food", core.NewDate(2025, 3, 31), true)
	d := s.create(s.user1.ID, 100, "Food", core.NewDate(2025, 4, 1), false)

	ids := func(es []core.Expense) []int64 {
		out := []int64{}
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	essential := true
	otherUser := s.user2.ID

	tests := []struct {
		name  string
		scope access.Scope
		c     filter.Criteria
		want  []int64
	}{
		{"own scope", access.Only(s.user1.ID), filter.Criteria{}, []int64{d, b, a}},
		{"all scope canonical order", access.All(), filter.Criteria{}, []int64{d, b, c, a}},
		{"inclusive to", access.All(), filter.Criteria{To: core.NewDate(2025, 3, 31)}, []int64{b, c, a}},
		{"from", access.All(), filter.Criteria{From: core.NewDate(2025, 3, 31)}, []int64{d, b, c}},
		{"category", access.All(), filter.Criteria{Category: "Food"}, []int64{d, c, a}},
		{"unknown category", access.All(), filter.Criteria{Category: "Nope"}, []int64{}},
		{"essential", access.All(), filter.Criteria{Essential: &essential}, []int64{c, a}},
		{"user filter", access.All(), filter.Criteria{UserID: &otherUser}, []int64{c}},
		{"user filter outside scope", access.Only(s.user1.ID), filter.Criteria{UserID: &otherUser}, []int64{}},
		{"inverted window", access.All(), filter.Criteria{From: core.NewDate(2025, 4, 1), To: core.NewDate(2025, 3, 1)}, []int64{}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.repo.ListExpenses(s.ctx, tt.scope, tt.c)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tt.want, ids(got))
		})
	}
}

func (s *RepositoryTestSuite) TestBudgetUpsert() {
	b, err := s.repo.GetBudget(s.ctx, s.user1.ID, s.march)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), b, "no budget set yet")

	require.NoError(s.T(), s.repo.UpsertBudget(s.ctx, s.user1.ID, s.march, core.Money{Cents: 3000}))
	require.NoError(s.T(), s.repo.UpsertBudget(s.ctx, s.user1.ID, s.march, core.Money{Cents: 3000}))

	b, err = s.repo.GetBudget(s.ctx, s.user1.ID, s.march)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), b)
	assert.Equal(s.T(), int64(3000), b.Amount.Cents)

	var rows int
	require.NoError(s.T(), s.repo.db.QueryRow(`SELECT COUNT(*) FROM budgets`).Scan(&rows))
	assert.Equal(s.T(), 1, rows)

	require.NoError(s.T(), s.repo.UpsertBudget(s.ctx, s.user1.ID, s.march, core.Money{}))
	b, _ = s.repo.GetBudget(s.ctx, s.user1.ID, s.march)
	require.NotNil(s.T(), b)
	assert.Equal(s.T(), int64(0), b.Amount.Cents, "zero is a real budget")

	other, err := s.repo.GetBudget(s.ctx, s.user2.ID, s.march)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), other)
}

func (s *RepositoryTestSuite) TestConcurrentUpsertsKeepOneRow() {
	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(cents int64) {
			defer wg.Done()
			_ = s.repo.UpsertBudget(s.ctx, s.user1.ID, s.march, core.Money{Cents: cents})
		}(int64(i * 100))
	}
	wg.Wait()

	var rows int
	require.NoError(s.T(), s.repo.db.QueryRow(`SELECT COUNT(*) FROM budgets WHERE user_id = ?`, s.user1.ID).Scan(&rows))
	assert.Equal(s.T(), 1, rows)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
