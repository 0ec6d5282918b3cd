// Package filter narrows a scoped expense set by user supplied criteria.
package filter

import (
	"cmp"
	"slices"

	"ledger/internal/access"
	"ledger/internal/core"
)

// Criteria describes an expense filter. The zero value matches everything.
type Criteria struct {
	Category  core.Category // empty means any
	From      core.Date     // inclusive, zero means unbounded
	To        core.Date     // inclusive, zero means unbounded
	Essential *bool
	UserID    *int64 // privileged callers only
}

// IsEmpty reports whether no field is set.
func (c Criteria) IsEmpty() bool {
	return c.Category == "" && c.From.IsZero() && c.To.IsZero() && c.Essential == nil && c.UserID == nil
}

// EmptyWindow reports whether the date bounds cannot match any day.
func (c Criteria) EmptyWindow() bool {
	return !c.From.IsZero() && !c.To.IsZero() && c.From.After(c.To.Time)
}

// Authorize rejects criteria the policy does not allow. A user filter from
// a non-privileged caller is refused outright, whichever user it names.
func (c Criteria) Authorize(p access.Policy) error {
	if c.UserID != nil && !p.CanFilterByUser() {
		return core.ErrUnauthorized
	}
	return nil
}

// Scope combines the caller's scope with the user filter. ok is false when
// the combination can match nothing.
func (c Criteria) Scope(s access.Scope) (access.Scope, bool) {
	if c.UserID == nil {
		return s, true
	}
	return s.Narrow(*c.UserID)
}

// Matches reports whether e satisfies every set field.
func (c Criteria) Matches(e core.Expense) bool {
	if c.Category != "" && e.Category != c.Category {
		return false
	}
	if !c.From.IsZero() && e.Date.Before(c.From.Time) {
		return false
	}
	if !c.To.IsZero() && e.Date.After(c.To.Time) {
		return false
	}
	if c.Essential != nil && e.Essential != *c.Essential {
		return false
	}
	if c.UserID != nil && e.UserID != *c.UserID {
		return false
	}
	return true
}

// Apply returns the expenses matching c, preserving input order. When known
// is non-nil, a category outside it yields an empty result.
func Apply(expenses []core.Expense, c Criteria, known core.CategorySet) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	if c.EmptyWindow() {
		return out
	}
	if c.Category != "" && known != nil && !known.Contains(c.Category) {
		return out
	}
	for _, e := range expenses {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Sort orders expenses canonically: date descending, then id ascending.
func Sort(expenses []core.Expense) {
	slices.SortStableFunc(expenses, compare)
}

func compare(a, b core.Expense) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Month returns criteria covering one calendar month.
func Month(p core.Period) Criteria {
	return Criteria{From: p.First(), To: p.Last()}
}
