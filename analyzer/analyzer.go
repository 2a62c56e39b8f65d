// analyzer/analyzer.go
package analyzer

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

// Wildcard is the reported resource entry for rules that match any
// resource. Such rules are reported explicitly, never silently dropped.
const Wildcard = "*"

// PolicySource supplies the target policy and its active peers.
type PolicySource interface {
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error)
}

// RoleCounter counts the current members of a role.
type RoleCounter interface {
	CountRoleMembers(ctx context.Context, roleName string) (int, error)
}

type RoleImpact struct {
	Name      string `json:"name"`
	UserCount int    `json:"user_count"`
}

type PolicyConflict struct {
	PolicyID string `json:"policy_id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// Impact is the blast radius of one policy: the roles it touches with their
// live member counts, the resources its rules govern, and the active
// policies in the same scope asserting the opposite effect on the same
// resource+action.
type Impact struct {
	AffectedRoles     []RoleImpact     `json:"affected_roles"`
	AffectedResources []string         `json:"affected_resources"`
	Conflicts         []PolicyConflict `json:"conflicts"`
}

// ImpactAnalyzer computes policy impact before activation. The analysis is
// read-only and runs out of band, never on the hot evaluation path.
type ImpactAnalyzer struct {
	policies PolicySource
	roles    RoleCounter
}

func NewImpactAnalyzer(policies PolicySource, roles RoleCounter) *ImpactAnalyzer {
	return &ImpactAnalyzer{policies: policies, roles: roles}
}

// AnalyzeImpact loads the target policy and reports its affected roles,
// affected resources and conflicting policies. Collaborators disappearing
// mid-analysis (a role or peer policy deleted underneath us) contribute
// zero impact rather than failing the run; only a missing target policy is
// an error.
func (a *ImpactAnalyzer) AnalyzeImpact(ctx context.Context, policyID string) (*Impact, error) {
	policy, err := a.policies.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	impact := &Impact{
		AffectedRoles:     []RoleImpact{},
		AffectedResources: []string{},
		Conflicts:         []PolicyConflict{},
	}

	roles, err := a.affectedRoles(ctx, policy)
	if err != nil {
		return nil, err
	}
	impact.AffectedRoles = roles

	impact.AffectedResources = affectedResources(policy)

	conflicts, err := a.conflictingPolicies(ctx, policy)
	if err != nil {
		return nil, err
	}
	impact.Conflicts = conflicts

	return impact, nil
}

// affectedRoles counts current members for each distinct role referenced by
// the policy's rule conditions. Counts are independent reads and run
// concurrently; a role that cannot be counted contributes zero members.
func (a *ImpactAnalyzer) affectedRoles(ctx context.Context, policy *model.Policy) ([]RoleImpact, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, rule := range policy.Rules {
		for _, condition := range rule.Conditions {
			if condition.Type != model.ConditionRole {
				continue
			}
			if _, dup := seen[condition.Value]; dup {
				continue
			}
			seen[condition.Value] = struct{}{}
			names = append(names, condition.Value)
		}
	}

	impacts := make([]RoleImpact, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			count, err := a.roles.CountRoleMembers(gctx, name)
			if err != nil {
				// A role deleted mid-analysis has zero impact; anything
				// else is logged and reported as zero rather than failing
				// the whole analysis.
				if !errors.Is(err, aegis_errors.ErrRoleNotFound) {
					logger.Warn("Failed to count role members, reporting zero",
						zap.Error(err),
						zap.String("role", name))
				}
				count = 0
			}
			impacts[i] = RoleImpact{Name: name, UserCount: count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return impacts, nil
}

func affectedResources(policy *model.Policy) []string {
	seen := make(map[string]struct{})
	var resources []string
	for _, rule := range policy.Rules {
		resource := rule.Resource
		if resource == "" {
			resource = Wildcard
		}
		if _, dup := seen[resource]; dup {
			continue
		}
		seen[resource] = struct{}{}
		resources = append(resources, resource)
	}
	sort.Strings(resources)
	return resources
}

// conflictingPolicies reports every other active policy in the same scope
// holding a rule with the same resource+action but the opposite effect.
// A policy appears at most once no matter how many rule pairs conflict.
func (a *ImpactAnalyzer) conflictingPolicies(ctx context.Context, policy *model.Policy) ([]PolicyConflict, error) {
	peers, err := a.policies.ActivePolicies(ctx, policy.Scope)
	if err != nil {
		return nil, err
	}

	conflicts := []PolicyConflict{}
	reported := make(map[string]struct{})
	for _, peer := range peers {
		if peer.ID == policy.ID {
			continue
		}
		if _, dup := reported[peer.ID]; dup {
			continue
		}
		if policiesConflict(policy, peer) {
			reported[peer.ID] = struct{}{}
			conflicts = append(conflicts, PolicyConflict{
				PolicyID: peer.ID,
				Name:     peer.Name,
				Priority: peer.Priority,
			})
		}
	}
	return conflicts, nil
}

func policiesConflict(target, peer *model.Policy) bool {
	for _, a := range target.Rules {
		for _, b := range peer.Rules {
			if a.Resource == b.Resource && a.Action == b.Action && a.Effect != b.Effect {
				return true
			}
		}
	}
	return false
}
