// Package aggregate totals expense sets in integer cents.
package aggregate

import (
	"slices"

	"ledger/internal/core"
)

// Totals is the result of folding an expense set. ByCategory only holds
// categories that occurred at least once.
type Totals struct {
	Total      core.Money
	ByCategory map[core.Category]core.Money
	Count      int
}

// CategoryAmount is one row of a category breakdown.
type CategoryAmount struct {
	Category core.Category
	Amount   core.Money
}

// Empty returns the identity element of Merge.
func Empty() Totals {
	return Totals{ByCategory: map[core.Category]core.Money{}}
}

// Of folds the given expenses.
func Of(expenses []core.Expense) Totals {
	t := Empty()
	for _, e := range expenses {
		t.add(e)
	}
	return t
}

// Add returns t with e folded in. t is left unchanged.
func (t Totals) Add(e core.Expense) Totals {
	out := t.clone()
	out.add(e)
	return out
}

func (t *Totals) add(e core.Expense) {
	t.Total = t.Total.Add(e.Amount)
	t.ByCategory[e.Category] = t.ByCategory[e.Category].Add(e.Amount)
	t.Count++
}

// Merge combines two partial results. It is commutative and associative, so
// disjoint subsets can be folded independently and merged in any order.
func Merge(a, b Totals) Totals {
	out := a.clone()
	out.Total = out.Total.Add(b.Total)
	out.Count += b.Count
	for c, m := range b.ByCategory {
		out.ByCategory[c] = out.ByCategory[c].Add(m)
	}
	return out
}

// Breakdown returns the category subtotals sorted by amount descending,
// then by name.
func (t Totals) Breakdown() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(t.ByCategory))
	for c, m := range t.ByCategory {
		out = append(out, CategoryAmount{Category: c, Amount: m})
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		switch {
		case a.Amount.Cents > b.Amount.Cents:
			return -1
		case a.Amount.Cents < b.Amount.Cents:
			return 1
		case a.Category < b.Category:
			return -1
		case a.Category > b.Category:
			return 1
		}
		return 0
	})
	return out
}

func (t Totals) clone() Totals {
	out := Totals{Total: t.Total, Count: t.Count, ByCategory: make(map[core.Category]core.Money, len(t.ByCategory))}
	for c, m := range t.ByCategory {
		out.ByCategory[c] = m
	}
	return out
}
