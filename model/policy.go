// model/policy.go
package model

import (
	"time"
)

// Policy statuses. Only active policies participate in evaluation.
const (
	PolicyStatusActive   = "active"
	PolicyStatusInactive = "inactive"
)

// Rule effects.
const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// ConditionType discriminates the condition payload.
type ConditionType string

const (
	ConditionRole   ConditionType = "role"
	ConditionTime   ConditionType = "time"
	ConditionIP     ConditionType = "ip"
	ConditionCustom ConditionType = "custom"
)

// Time condition operators. The boundary is exclusive in both directions.
const (
	OperatorBefore = "before"
	OperatorAfter  = "after"
)

// Policy is a named, prioritized, scoped container of rules. Lower priority
// values are evaluated first. An empty Scope means the policy is global.
// Rules are owned exclusively by the policy; deleting a policy removes them.
type Policy struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	Status      string    `json:"status"`
	Scope       string    `json:"scope,omitempty"`
	Rules       []Rule    `json:"rules"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Rule is a single resource/action/effect/condition tuple. An empty Resource
// or Action matches any value for that dimension. All conditions must hold
// for the rule to match; a rule with no conditions matches unconditionally
// once resource and action match.
type Rule struct {
	ID         string      `json:"id"`
	Resource   string      `json:"resource,omitempty"`
	Action     string      `json:"action,omitempty"`
	Effect     string      `json:"effect"`
	Priority   int         `json:"priority"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Condition is a typed predicate. The Value payload depends on Type:
// a role name, an RFC3339 timestamp, an IPv4 CIDR range, or a CEL
// expression for custom conditions. Unknown types never match.
type Condition struct {
	Type     ConditionType `json:"type"`
	Operator string        `json:"operator,omitempty"`
	Value    string        `json:"value"`
}

// PolicyUpdate carries a partial update. Nil fields are left untouched.
// A non-nil Rules pointer replaces the full rule set atomically.
type PolicyUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	Rules       *[]Rule `json:"rules,omitempty"`
}

// Clone returns a deep copy of the policy, including its rule set.
func (p *Policy) Clone() *Policy {
	cp := *p
	cp.Rules = make([]Rule, len(p.Rules))
	for i, r := range p.Rules {
		cp.Rules[i] = r
		if len(r.Conditions) > 0 {
			cp.Rules[i].Conditions = append([]Condition(nil), r.Conditions...)
		}
	}
	return &cp
}
