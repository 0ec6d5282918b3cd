package budget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

var march = core.Period{Year: 2025, Month: 3}

func marchExpenses() []core.Expense {
	return []core.Expense{
		{ID: 1, UserID: 1, Amount: core.Money{Cents: 2000}, Category: "Food", Date: core.NewDate(2025, 3, 4), Essential: true},
		{ID: 2, UserID: 1, Amount: core.Money{Cents: 1550}, Category: "Transport", Date: core.NewDate(2025, 3, 18)},
	}
}

func TestReconcileOverBudget(t *testing.T) {
	stored := &core.Budget{UserID: 1, Period: march, Amount: core.Money{Cents: 3000}}
	r := Reconcile(1, march, stored, marchExpenses())

	require.True(t, r.IsSet())
	assert.Equal(t, core.Money{Cents: 3550}, r.Spent)
	assert.Equal(t, core.Money{Cents: 3000}, *r.Budget)
	assert.Equal(t, core.Money{Cents: -550}, *r.Remaining)
	assert.True(t, *r.OverBudget)
	assert.Len(t, r.ByCategory, 2)
}

func TestReconcileUnderAndExactBudget(t *testing.T) {
	under := Reconcile(1, march, &core.Budget{Amount: core.Money{Cents: 5000}}, marchExpenses())
	assert.Equal(t, core.Money{Cents: 1450}, *under.Remaining)
	assert.False(t, *under.OverBudget)

	exact := Reconcile(1, march, &core.Budget{Amount: core.Money{Cents: 3550}}, marchExpenses())
	assert.Equal(t, core.Money{}, *exact.Remaining)
	assert.False(t, *exact.OverBudget, "spending exactly the budget is not over budget")
}

func TestReconcileUnsetBudget(t *testing.T) {
	r := Reconcile(1, march, nil, marchExpenses())
	assert.False(t, r.IsSet())
	assert.Equal(t, core.Money{Cents: 3550}, r.Spent)
	assert.Nil(t, r.Budget)
	assert.Nil(t, r.Remaining)
	assert.Nil(t, r.OverBudget)
}

func TestReconcileZeroBudgetIsABoundary(t *testing.T) {
	r := Reconcile(1, march, &core.Budget{Amount: core.Money{}}, nil)
	require.True(t, r.IsSet())
	assert.Equal(t, core.Money{}, *r.Budget)
	assert.Equal(t, core.Money{}, *r.Remaining)
	assert.False(t, *r.OverBudget)

	r = Reconcile(1, march, &core.Budget{Amount: core.Money{}}, marchExpenses())
	assert.True(t, *r.OverBudget)
}

func TestReconcileIgnoresOtherUsersAndMonths(t *testing.T) {
	es := append(marchExpenses(),
		core.Expense{ID: 3, UserID: 2, Amount: core.Money{Cents: 9999}, Category: "Food", Date: core.NewDate(2025, 3, 5)},
		core.Expense{ID: 4, UserID: 1, Amount: core.Money{Cents: 9999}, Category: "Food", Date: core.NewDate(2025, 4, 1)},
		core.Expense{ID: 5, UserID: 1, Amount: core.Money{Cents: 9999}, Category: "Food", Date: core.NewDate(2024, 3, 5)},
	)
	r := Reconcile(1, march, nil, es)
	assert.Equal(t, core.Money{Cents: 3550}, r.Spent)
}

func TestReconcileDoesNotAliasStoredBudget(t *testing.T) {
	stored := &core.Budget{Amount: core.Money{Cents: 100}}
	r := Reconcile(1, march, stored, nil)
	stored.Amount.Cents = 5
	assert.Equal(t, int64(100), r.Budget.Cents)
}

func TestReconcileHugeSpendStaysOverBudget(t *testing.T) {
	big := int64(math.MaxInt64/2 + 1)
	expenses := []core.Expense{
		{ID: 1, UserID: 1, Amount: core.Money{Cents: big}, Category: "Food", Date: core.NewDate(2025, 3, 4)},
		{ID: 2, UserID: 1, Amount: core.Money{Cents: big}, Category: "Food", Date: core.NewDate(2025, 3, 5)},
	}
	stored := &core.Budget{UserID: 1, Period: march, Amount: core.Money{Cents: 100}}
	r := Reconcile(1, march, stored, expenses)

	assert.False(t, r.Spent.IsNegative())
	assert.True(t, r.Remaining.IsNegative())
	assert.True(t, *r.OverBudget)
}
