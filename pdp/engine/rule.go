// pdp/engine/rule.go
package engine

import (
	"context"

	"github.com/aegis-iam/aegis/model"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
)

// RuleMatcher decides whether a single rule applies to a request.
type RuleMatcher struct {
	conditions *ConditionEvaluator
}

func NewRuleMatcher(conditions *ConditionEvaluator) *RuleMatcher {
	return &RuleMatcher{conditions: conditions}
}

// Matches checks the resource and action dimensions (empty means any), then
// requires every condition to hold. Conditions are ANDed and evaluation
// short-circuits on the first non-match. A rule with no conditions matches
// unconditionally once the dimensions match.
func (rm *RuleMatcher) Matches(ctx context.Context, rule model.Rule, request *pdp_model.AccessRequest, ec *pdp_model.EvaluationContext) bool {
	if rule.Resource != "" && rule.Resource != request.Resource {
		return false
	}
	if rule.Action != "" && rule.Action != request.Action {
		return false
	}
	for _, condition := range rule.Conditions {
		if !rm.conditions.Evaluate(ctx, condition, request, ec) {
			return false
		}
	}
	return true
}
