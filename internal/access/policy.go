// Package access resolves what a principal may see and change.
//
// A Policy is resolved once per request from the principal's role and then
// consulted by every operation. There are exactly two variants: standard
// principals are confined to their own records, privileged principals see
// and mutate everything but may only read other users' budgets.
package access

import "ledger/internal/core"

// Scope is the set of user ids whose records a principal may access.
type Scope struct {
	all    bool
	userID int64
}

// All returns the unrestricted scope.
func All() Scope {
	return Scope{all: true}
}

// Only returns the scope of a single user.
func Only(userID int64) Scope {
	return Scope{userID: userID}
}

// IsAll reports whether the scope is unrestricted.
func (s Scope) IsAll() bool {
	return s.all
}

// UserID returns the single user of a restricted scope.
func (s Scope) UserID() (int64, bool) {
	if s.all {
		return 0, false
	}
	return s.userID, true
}

// Includes reports whether records owned by userID fall inside the scope.
func (s Scope) Includes(userID int64) bool {
	return s.all || s.userID == userID
}

// Narrow intersects the scope with a single user. The result is empty
// (ok == false) when that user is outside the scope.
func (s Scope) Narrow(userID int64) (Scope, bool) {
	if !s.Includes(userID) {
		return Scope{}, false
	}
	return Only(userID), true
}

// Policy answers what one principal may see and change.
type Policy interface {
	Principal() core.Principal
	Scope() Scope
	CanView(ownerID int64) bool
	CanMutate(e core.Expense) bool
	CanReadBudget(targetUserID int64) bool
	CanSetBudget(targetUserID int64) bool
	CanFilterByUser() bool
	CanManageCategories() bool
}

// For resolves the policy variant for a principal. Unknown roles fall back
// to the standard variant.
func For(p core.Principal) Policy {
	if p.IsPrivileged() {
		return privilegedPolicy{principal: p}
	}
	return standardPolicy{principal: p}
}

// ScopeFor returns the access scope of a principal.
func ScopeFor(p core.Principal) Scope {
	return For(p).Scope()
}

// CanMutate reports whether p may update or delete e.
func CanMutate(p core.Principal, e core.Expense) bool {
	return For(p).CanMutate(e)
}

// CanSetBudget reports whether p may write the budget of target.
func CanSetBudget(p core.Principal, targetUserID int64) bool {
	return For(p).CanSetBudget(targetUserID)
}

type standardPolicy struct {
	principal core.Principal
}

func (p standardPolicy) Principal() core.Principal { return p.principal }
func (p standardPolicy) Scope() Scope { return Only(p.principal.UserID) }
func (p standardPolicy) CanFilterByUser() bool { return false }
func (p standardPolicy) CanManageCategories() bool { return false }

func (p standardPolicy) CanView(ownerID int64) bool {
	return ownerID == p.principal.UserID
}

func (p standardPolicy) CanMutate(e core.Expense) bool {
	return e.UserID == p.principal.UserID
}

func (p standardPolicy) CanReadBudget(targetUserID int64) bool {
	return targetUserID == p.principal.UserID
}

func (p standardPolicy) CanSetBudget(targetUserID int64) bool {
	return targetUserID == p.principal.UserID
}

type privilegedPolicy struct {
	principal core.Principal
}

func (p privilegedPolicy) Principal() core.Principal { return p.principal }
func (p privilegedPolicy) Scope() Scope { return All() }
func (p privilegedPolicy) CanView(int64) bool { return true }
func (p privilegedPolicy) CanMutate(core.Expense) bool { return true }
func (p privilegedPolicy) CanReadBudget(int64) bool { return true }
func (p privilegedPolicy) CanFilterByUser() bool { return true }
func (p privilegedPolicy) CanManageCategories() bool { return true }

// Budgets stay owner-written even for privileged principals.
func (p privilegedPolicy) CanSetBudget(targetUserID int64) bool {
	return targetUserID == p.principal.UserID
}
