// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// AuditLog records either an access decision or a policy administration
// action. For decisions, AccessGranted carries the verdict and PolicyID the
// deciding policy (empty on default deny).
type AuditLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"user_id"`
	Action        string          `json:"action"`
	Resource      string          `json:"resource,omitempty"`
	Scope         string          `json:"scope,omitempty"`
	AccessGranted bool            `json:"access_granted"`
	PolicyID      string          `json:"policy_id,omitempty"`
	RuleID        string          `json:"rule_id,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
