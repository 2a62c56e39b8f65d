// pdp/model/request.go
package model

import (
	"context"
)

// AccessRequest is the (resource, action, context) part of an access check.
// Context carries free-form metadata; IP conditions read the network origin
// from the "ip_address" key, custom conditions may read anything.
type AccessRequest struct {
	Resource string                 `json:"resource" binding:"required"`
	Action   string                 `json:"action" binding:"required"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// RoleResolver resolves the set of role names a user holds.
type RoleResolver interface {
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
}

// EvaluationContext is the ephemeral per-call state of one access check.
// Role membership is resolved at most once per evaluation and memoized
// here; the memo never outlives the call, so stale-role bugs cannot occur
// across evaluations.
type EvaluationContext struct {
	UserID     string
	Scope      string
	Attributes map[string]interface{}

	resolver    RoleResolver
	roles       map[string]struct{}
	rolesLoaded bool
}

func NewEvaluationContext(userID, scope string, attributes map[string]interface{}, resolver RoleResolver) *EvaluationContext {
	return &EvaluationContext{
		UserID:     userID,
		Scope:      scope,
		Attributes: attributes,
		resolver:   resolver,
	}
}

// HasRole reports whether the caller holds the named role, resolving the
// role set on first use.
func (ec *EvaluationContext) HasRole(ctx context.Context, roleName string) (bool, error) {
	if !ec.rolesLoaded {
		if ec.resolver == nil {
			return false, nil
		}
		names, err := ec.resolver.GetUserRoles(ctx, ec.UserID)
		if err != nil {
			return false, err
		}
		ec.roles = make(map[string]struct{}, len(names))
		for _, n := range names {
			ec.roles[n] = struct{}{}
		}
		ec.rolesLoaded = true
	}
	_, ok := ec.roles[roleName]
	return ok, nil
}

// ClientIP returns the network origin recorded in the request context, or
// an empty string when absent.
func (ec *EvaluationContext) ClientIP() string {
	if ec.Attributes == nil {
		return ""
	}
	if ip, ok := ec.Attributes["ip_address"].(string); ok {
		return ip
	}
	return ""
}
