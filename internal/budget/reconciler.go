// Package budget combines a stored monthly budget with the month's spend.
package budget

import (
	"ledger/internal/aggregate"
	"ledger/internal/core"
)

// Reconciliation is the spent/remaining view of one user-month. Budget,
// Remaining and OverBudget are nil when no budget was set for the month; a
// budget of zero is a real value.
type Reconciliation struct {
	UserID     int64
	Period     core.Period
	Budget     *core.Money
	Spent      core.Money
	ByCategory []aggregate.CategoryAmount
	Remaining  *core.Money
	OverBudget *bool
}

// IsSet reports whether a budget exists for the period.
func (r Reconciliation) IsSet() bool {
	return r.Budget != nil
}

// Reconcile computes the view for userID in period. Expenses of other users
// or other months are ignored. Essential and discretionary spend both count.
func Reconcile(userID int64, period core.Period, stored *core.Budget, expenses []core.Expense) Reconciliation {
	month := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.UserID == userID && period.Contains(e.Date) {
			month = append(month, e)
		}
	}
	totals := aggregate.Of(month)

	r := Reconciliation{
		UserID:     userID,
		Period:     period,
		Spent:      totals.Total,
		ByCategory: totals.Breakdown(),
	}
	if stored == nil {
		return r
	}

	amount := stored.Amount
	remaining := amount.Sub(totals.Total)
	over := remaining.IsNegative()
	r.Budget = &amount
	r.Remaining = &remaining
	r.OverBudget = &over
	return r
}
