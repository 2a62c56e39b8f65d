// analyzer/analyzer_test.go
package analyzer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

func TestMain(m *testing.M) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()
	m.Run()
}

type stubPolicySource struct {
	policies map[string]*model.Policy
	active   []*model.Policy
}

func (s *stubPolicySource) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	if p, ok := s.policies[policyID]; ok {
		return p, nil
	}
	return nil, aegis_errors.ErrPolicyNotFound
}

func (s *stubPolicySource) ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error) {
	return s.active, nil
}

type stubRoleCounter struct {
	counts map[string]int
	errs   map[string]error
}

func (s *stubRoleCounter) CountRoleMembers(ctx context.Context, roleName string) (int, error) {
	if err, ok := s.errs[roleName]; ok {
		return 0, err
	}
	if count, ok := s.counts[roleName]; ok {
		return count, nil
	}
	return 0, aegis_errors.ErrRoleNotFound
}

func roleCondition(role string) model.Condition {
	return model.Condition{Type: model.ConditionRole, Value: role}
}

func TestAnalyzeImpactMissingPolicy(t *testing.T) {
	a := NewImpactAnalyzer(&stubPolicySource{}, &stubRoleCounter{})

	impact, err := a.AnalyzeImpact(context.Background(), "nope")
	assert.Nil(t, impact)
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyNotFound)
}

func TestAnalyzeImpactAffectedRoles(t *testing.T) {
	policy := &model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{Resource: "doc-1", Action: "read", Conditions: []model.Condition{roleCondition("auditor")}},
			{Resource: "doc-2", Action: "read", Conditions: []model.Condition{roleCondition("auditor"), roleCondition("viewer")}},
		},
	}
	source := &stubPolicySource{policies: map[string]*model.Policy{"p1": policy}}
	counter := &stubRoleCounter{counts: map[string]int{"auditor": 3, "viewer": 12}}
	a := NewImpactAnalyzer(source, counter)

	impact, err := a.AnalyzeImpact(context.Background(), "p1")
	require.NoError(t, err)

	// Each role is reported once even when referenced by several rules.
	require.Len(t, impact.AffectedRoles, 2)
	assert.Contains(t, impact.AffectedRoles, RoleImpact{Name: "auditor", UserCount: 3})
	assert.Contains(t, impact.AffectedRoles, RoleImpact{Name: "viewer", UserCount: 12})
}

func TestAnalyzeImpactRoleFailuresReportZero(t *testing.T) {
	policy := &model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{Conditions: []model.Condition{roleCondition("deleted-role"), roleCondition("flaky-role")}},
		},
	}
	source := &stubPolicySource{policies: map[string]*model.Policy{"p1": policy}}
	counter := &stubRoleCounter{errs: map[string]error{
		"deleted-role": aegis_errors.ErrRoleNotFound,
		"flaky-role":   errors.New("directory timeout"),
	}}
	a := NewImpactAnalyzer(source, counter)

	impact, err := a.AnalyzeImpact(context.Background(), "p1")
	require.NoError(t, err)
	assert.Contains(t, impact.AffectedRoles, RoleImpact{Name: "deleted-role", UserCount: 0})
	assert.Contains(t, impact.AffectedRoles, RoleImpact{Name: "flaky-role", UserCount: 0})
}

func TestAnalyzeImpactAffectedResources(t *testing.T) {
	policy := &model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{Resource: "doc-2", Action: "read"},
			{Resource: "doc-1", Action: "read"},
			{Resource: "doc-1", Action: "write"},
			{Action: "read"}, // applies to any resource
		},
	}
	source := &stubPolicySource{policies: map[string]*model.Policy{"p1": policy}}
	a := NewImpactAnalyzer(source, &stubRoleCounter{})

	impact, err := a.AnalyzeImpact(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{Wildcard, "doc-1", "doc-2"}, impact.AffectedResources)
}

func TestAnalyzeImpactConflicts(t *testing.T) {
	target := &model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{Resource: "doc-1", Action: "read", Effect: model.EffectAllow},
			{Resource: "doc-1", Action: "write", Effect: model.EffectAllow},
		},
	}
	opposing := &model.Policy{
		ID:       "p2",
		Name:     "lockdown",
		Priority: 5,
		Rules: []model.Rule{
			// Two rule pairs conflict; the peer must still appear once.
			{Resource: "doc-1", Action: "read", Effect: model.EffectDeny},
			{Resource: "doc-1", Action: "write", Effect: model.EffectDeny},
		},
	}
	agreeing := &model.Policy{
		ID: "p3",
		Rules: []model.Rule{
			{Resource: "doc-1", Action: "read", Effect: model.EffectAllow},
		},
	}
	unrelated := &model.Policy{
		ID: "p4",
		Rules: []model.Rule{
			{Resource: "other", Action: "read", Effect: model.EffectDeny},
		},
	}

	source := &stubPolicySource{
		policies: map[string]*model.Policy{"p1": target, "p2": opposing},
		active:   []*model.Policy{target, opposing, agreeing, unrelated},
	}
	a := NewImpactAnalyzer(source, &stubRoleCounter{})

	impact, err := a.AnalyzeImpact(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, impact.Conflicts, 1)
	assert.Equal(t, PolicyConflict{PolicyID: "p2", Name: "lockdown", Priority: 5}, impact.Conflicts[0])

	// The relation is symmetric: analyzing the opposing policy reports the
	// original target.
	impact, err = a.AnalyzeImpact(context.Background(), "p2")
	require.NoError(t, err)
	require.Len(t, impact.Conflicts, 1)
	assert.Equal(t, "p1", impact.Conflicts[0].PolicyID)
}

func TestAnalyzeImpactEmptySections(t *testing.T) {
	policy := &model.Policy{
		ID: "p1",
		Rules: []model.Rule{
			{Resource: "doc-1", Action: "read", Effect: model.EffectAllow},
		},
	}
	source := &stubPolicySource{
		policies: map[string]*model.Policy{"p1": policy},
		active:   []*model.Policy{policy},
	}
	a := NewImpactAnalyzer(source, &stubRoleCounter{})

	impact, err := a.AnalyzeImpact(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, impact.AffectedRoles)
	assert.Empty(t, impact.Conflicts)
}
