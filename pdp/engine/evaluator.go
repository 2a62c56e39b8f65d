// pdp/engine/evaluator.go
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
)

// PolicyRetriever supplies the active policies visible to a scope, sorted
// ascending by priority.
type PolicyRetriever interface {
	ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error)
}

// PolicyEvaluator runs the first-match-wins traversal: policies in priority
// order, rules within each policy in priority order, and the first matching
// rule decides. The simple, auditable mental model (priority order is
// authorship order) is the point; no weighted or majority voting.
type PolicyEvaluator struct {
	retriever PolicyRetriever
	matcher   *RuleMatcher
	timeout   time.Duration
}

func NewPolicyEvaluator(retriever PolicyRetriever, matcher *RuleMatcher, timeout time.Duration) *PolicyEvaluator {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &PolicyEvaluator{
		retriever: retriever,
		matcher:   matcher,
		timeout:   timeout,
	}
}

// EvaluateAccess decides whether the request is permitted. Evaluation is
// read-only and safe to run concurrently against the same policy set.
//
// If no rule matches, the verdict is deny. If the policies cannot be
// retrieved or the deadline is breached, the error wraps ErrIndeterminate:
// an authorization check that cannot read its rules must not silently
// permit or silently deny.
func (pe *PolicyEvaluator) EvaluateAccess(ctx context.Context, request *pdp_model.AccessRequest, ec *pdp_model.EvaluationContext) (*pdp_model.AccessDecision, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, pe.timeout)
	defer cancel()

	policies, err := pe.retriever.ActivePolicies(ctx, ec.Scope)
	if err != nil {
		logger.Error("Failed to retrieve policies for evaluation",
			zap.Error(err),
			zap.String("scope", ec.Scope))
		return nil, fmt.Errorf("%w: policy retrieval failed: %v", aegis_errors.ErrIndeterminate, err)
	}

	// The store returns policies pre-sorted; re-sorting keeps the traversal
	// total ordering independent of any one backend's guarantees.
	sort.SliceStable(policies, func(i, j int) bool {
		return policies[i].Priority < policies[j].Priority
	})

	for _, policy := range policies {
		rules := append([]model.Rule(nil), policy.Rules...)
		sort.SliceStable(rules, func(i, j int) bool {
			return rules[i].Priority < rules[j].Priority
		})

		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: evaluation deadline exceeded", aegis_errors.ErrIndeterminate)
			}
			if pe.matcher.Matches(ctx, rule, request, ec) {
				decision := &pdp_model.AccessDecision{
					Allowed:  rule.Effect == model.EffectAllow,
					PolicyID: policy.ID,
					RuleID:   rule.ID,
					Resource: request.Resource,
					Action:   request.Action,
					Reason:   fmt.Sprintf("matched rule in policy %q", policy.Name),
				}
				logger.Info("Access decision",
					zap.Bool("allowed", decision.Allowed),
					zap.String("policyID", policy.ID),
					zap.String("ruleID", rule.ID),
					zap.String("userID", ec.UserID),
					zap.String("resource", request.Resource),
					zap.String("action", request.Action),
					zap.Duration("duration", time.Since(start)))
				return decision, nil
			}
		}
	}

	// No rule matched: fail closed.
	decision := &pdp_model.AccessDecision{
		Allowed:  false,
		Resource: request.Resource,
		Action:   request.Action,
		Reason:   "no matching rule, default deny",
	}
	logger.Info("Access decision",
		zap.Bool("allowed", false),
		zap.String("userID", ec.UserID),
		zap.String("resource", request.Resource),
		zap.String("action", request.Action),
		zap.Int("policiesEvaluated", len(policies)),
		zap.Duration("duration", time.Since(start)))
	return decision, nil
}
