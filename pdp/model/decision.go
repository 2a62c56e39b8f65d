// pdp/model/decision.go
package model

// AccessDecision is the verdict of one access check. PolicyID and RuleID
// identify the deciding rule's provenance; both are empty on a default
// deny (no rule matched).
type AccessDecision struct {
	Allowed  bool   `json:"allowed"`
	PolicyID string `json:"policy_id,omitempty"`
	RuleID   string `json:"rule_id,omitempty"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
}
