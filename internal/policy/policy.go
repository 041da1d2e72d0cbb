// Package policy holds the single role-based access decision used by every
// ledger operation. It is stateless and knows nothing about organizations;
// tenant scoping is applied by the storage queries.
package policy

import "ledger/internal/core"

// Decision is the outcome of Authorize. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  core.DenyReason
}

var allow = Decision{Allowed: true}

// Authorize decides whether role may perform action on a resource owned by
// ownerUserID. ownerUserID is ignored for actions without an owner.
func Authorize(role core.Role, action core.Action, actorUserID, ownerUserID int64) Decision {
	switch role {
	case core.RoleAdmin:
		if known(action) {
			return allow
		}
	case core.RoleUser:
		switch action {
		case core.CreateTransaction, core.EditTransaction:
			if actorUserID != ownerUserID {
				return Decision{Reason: core.NotOwner}
			}
			return allow
		case core.ViewTransactions, core.ViewReports, core.ExportCSV:
			return allow
		}
	case core.RoleReadonly:
		switch action {
		case core.ViewTransactions, core.ViewReports, core.ExportCSV:
			return allow
		}
	}
	return Decision{Reason: core.InsufficientRole}
}

// Check runs Authorize for the actor and converts a denial to an error.
func Check(actor core.Actor, action core.Action, ownerUserID int64) error {
	return Authorize(actor.Role, action, actor.UserID, ownerUserID).Err(actor.Role, action)
}

// Err returns nil for an allowed decision, a *core.AuthorizationError otherwise.
func (d Decision) Err(role core.Role, action core.Action) error {
	if d.Allowed {
		return nil
	}
	return &core.AuthorizationError{Role: role, Action: action, Reason: d.Reason}
}

// OwnerScope returns the creator a listing must be restricted to, or 0 when
// the role sees every transaction of its organization.
func OwnerScope(actor core.Actor) int64 {
	if actor.Role == core.RoleAdmin || actor.Role == core.RoleReadonly {
		return 0
	}
	// Unknown roles fall through to the narrowest scope.
	return actor.UserID
}

func known(action core.Action) bool {
	switch action {
	case core.ManageUsers, core.ManageAccounts, core.ManageCategories,
		core.CreateTransaction, core.EditTransaction, core.ViewTransactions,
		core.CreateBudget, core.ViewReports, core.ExportCSV:
		return true
	}
	return false
}
