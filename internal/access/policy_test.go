package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledger/internal/core"
)

var (
	alice = core.Principal{UserID: 1, Role: core.RoleStandard}
	bob   = core.Principal{UserID: 2, Role: core.RoleStandard}
	admin = core.Principal{UserID: 9, Role: core.RolePrivileged}
)

func TestScopeFor(t *testing.T) {
	s := ScopeFor(alice)
	id, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.False(t, s.IsAll())
	assert.True(t, s.Includes(1))
	assert.False(t, s.Includes(2))

	s = ScopeFor(admin)
	assert.True(t, s.IsAll())
	_, ok = s.UserID()
	assert.False(t, ok)
	assert.True(t, s.Includes(1))
	assert.True(t, s.Includes(2))
}

func TestScopeForUnknownRoleIsStandard(t *testing.T) {
	s := ScopeFor(core.Principal{UserID: 5, Role: "root"})
	assert.False(t, s.IsAll())
	assert.True(t, s.Includes(5))
}

func TestScopeNarrow(t *testing.T) {
	n, ok := All().Narrow(3)
	assert.True(t, ok)
	id, _ := n.UserID()
	assert.Equal(t, int64(3), id)

	_, ok = Only(1).Narrow(2)
	assert.False(t, ok)

	n, ok = Only(1).Narrow(1)
	assert.True(t, ok)
	assert.Equal(t, Only(1), n)
}

func TestCanMutate(t *testing.T) {
	owned := core.Expense{ID: 10, UserID: 1}
	tests := []struct {
		name string
		p    core.Principal
		want bool
	}{
		{"owner", alice, true},
		{"other standard user", bob, false},
		{"privileged", admin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanMutate(tt.p, owned))
		})
	}
}

func TestCanSetBudget(t *testing.T) {
	assert.True(t, CanSetBudget(alice, 1))
	assert.False(t, CanSetBudget(alice, 2))
	assert.False(t, CanSetBudget(admin, 1), "privileged principals only read other budgets")
	assert.True(t, CanSetBudget(admin, 9))

	assert.True(t, For(admin).CanReadBudget(1))
	assert.False(t, For(bob).CanReadBudget(1))
}

func TestCapabilityFlags(t *testing.T) {
	assert.False(t, For(alice).CanFilterByUser())
	assert.True(t, For(admin).CanFilterByUser())
	assert.False(t, For(alice).CanManageCategories())
	assert.True(t, For(admin).CanManageCategories())
	assert.Equal(t, alice, For(alice).Principal())
	assert.True(t, For(admin).CanView(1))
	assert.False(t, For(bob).CanView(1))
}
