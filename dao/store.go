// dao/store.go
package dao

import (
	"context"

	"github.com/aegis-iam/aegis/model"
)

// PolicyStore is the persistence boundary for policies and their rules.
// Rules have no independent lifecycle: they are written and removed with
// their owning policy, and UpdatePolicy replaces the full rule set as a
// single unit guarded by a version compare-and-swap.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (string, error)
	// UpdatePolicy persists the given policy iff the stored version equals
	// expectedVersion, and returns the stored result. A stale version yields
	// ErrVersionConflict; a missing policy yields ErrPolicyNotFound.
	UpdatePolicy(ctx context.Context, policy model.Policy, expectedVersion int, actorID string) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, actorID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error)
	// ActivePolicies returns active policies visible to the given scope
	// (global policies plus those matching the scope), sorted ascending by
	// priority. The evaluation path depends on this ordering.
	ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error)
}

// RoleDirectory resolves role membership. It is an external collaborator of
// the evaluation engine and the impact analyzer; lookups are memoized per
// evaluation by the caller, never here.
type RoleDirectory interface {
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
	CountRoleMembers(ctx context.Context, roleName string) (int, error)
}
