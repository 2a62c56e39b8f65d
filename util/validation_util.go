// util/validation_util.go

package util

import (
	"fmt"
	"net"
	"time"

	"github.com/aegis-iam/aegis/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidatePolicy rejects malformed policies before any store access.
// Condition payloads are checked here, at parse time, so evaluation never
// sees a well-formed-but-unparseable condition.
func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if policy.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if policy.Status != model.PolicyStatusActive && policy.Status != model.PolicyStatusInactive {
		return fmt.Errorf("policy status must be %q or %q", model.PolicyStatusActive, model.PolicyStatusInactive)
	}
	if len(policy.Rules) == 0 {
		return fmt.Errorf("policy must have at least one rule")
	}
	return v.ValidateRules(policy.Rules)
}

// ValidateRules validates a replacement rule set.
func (v *ValidationUtil) ValidateRules(rules []model.Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("rule set cannot be empty")
	}
	for i, rule := range rules {
		if err := v.validateRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func (v *ValidationUtil) validateRule(rule model.Rule) error {
	if rule.Effect != model.EffectAllow && rule.Effect != model.EffectDeny {
		return fmt.Errorf("effect must be %q or %q", model.EffectAllow, model.EffectDeny)
	}
	for i, condition := range rule.Conditions {
		if err := v.validateCondition(condition); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func (v *ValidationUtil) validateCondition(condition model.Condition) error {
	switch condition.Type {
	case model.ConditionRole:
		if condition.Value == "" {
			return fmt.Errorf("role condition requires a role name")
		}
	case model.ConditionTime:
		if condition.Operator != model.OperatorBefore && condition.Operator != model.OperatorAfter {
			return fmt.Errorf("time condition operator must be %q or %q", model.OperatorBefore, model.OperatorAfter)
		}
		if _, err := time.Parse(time.RFC3339, condition.Value); err != nil {
			return fmt.Errorf("time condition value must be an RFC3339 timestamp: %w", err)
		}
	case model.ConditionIP:
		_, network, err := net.ParseCIDR(condition.Value)
		if err != nil {
			return fmt.Errorf("ip condition value must be a CIDR range: %w", err)
		}
		if network.IP.To4() == nil {
			return fmt.Errorf("ip condition supports IPv4 ranges only")
		}
	case model.ConditionCustom:
		if condition.Value == "" {
			return fmt.Errorf("custom condition requires an expression")
		}
	default:
		return fmt.Errorf("unknown condition type: %q", condition.Type)
	}
	return nil
}
