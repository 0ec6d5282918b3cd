// Package memory is an in-process repository used by tests and by the
// memory data backend. State is lost on restart.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ledger/internal/access"
	"ledger/internal/core"
	"ledger/internal/filter"
)

type budgetKey struct {
	userID int64
	period core.Period
}

type Store struct {
	mu       sync.Mutex
	cats     []core.Category
	users    []core.User
	items    map[int64]core.Expense
	budgets  map[budgetKey]core.Budget
	nextUser int64
	nextItem int64
	now      func() time.Time
}

func New(cats []core.Category) *Store {
	return &Store{
		cats:    dedupe(cats),
		items:   make(map[int64]core.Expense),
		budgets: make(map[budgetKey]core.Budget),
		now:     time.Now,
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back
// to the default set.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.DefaultCategories
	}
	return New(cats)
}

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(_ context.Context, scope access.Scope, c filter.Criteria) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if !scope.Includes(e.UserID) || !c.Matches(e) {
			continue
		}
		e.Owner = s.usernameLocked(e.UserID)
		out = append(out, e)
	}
	if c.EmptyWindow() {
		out = out[:0]
	}
	filter.Sort(out)
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	e.Owner = s.usernameLocked(e.UserID)
	return e, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userLocked(e.UserID); !ok {
		return 0, core.ErrNotFound
	}
	s.nextItem++
	e.ID = s.nextItem
	e.Owner = ""
	s.items[e.ID] = e
	return e.ID, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[e.ID]
	if !ok {
		return core.ErrNotFound
	}
	// Ownership never changes on update.
	e.UserID = cur.UserID
	e.Owner = ""
	s.items[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID int64, p core.Period) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetKey{userID: userID, period: p}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) UpsertBudget(_ context.Context, userID int64, p core.Period, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userLocked(userID); !ok {
		return core.ErrNotFound
	}
	s.budgets[budgetKey{userID: userID, period: p}] = core.Budget{
		UserID:    userID,
		Period:    p,
		Amount:    amount,
		UpdatedAt: s.now(),
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) AddCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing == c {
			return core.ErrConflict
		}
	}
	s.cats = append(s.cats, c)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, core.ErrConflict
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = s.now()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userLocked(id)
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) userLocked(id int64) (core.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return core.User{}, false
}

func (s *Store) usernameLocked(id int64) string {
	u, _ := s.userLocked(id)
	return u.Username
}

func readLines(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, core.Category(line))
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[core.Category]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, v := range in {
		v = core.Category(strings.TrimSpace(string(v)))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
