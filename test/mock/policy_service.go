// test/mock/policy_service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aegis-iam/aegis/analyzer"
	"github.com/aegis-iam/aegis/model"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
)

// MockPolicyService is a mock implementation of service.IPolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) CreatePolicy(ctx context.Context, caller model.Principal, policy model.Policy) (*model.Policy, error) {
	args := m.Called(ctx, caller, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyService) UpdatePolicy(ctx context.Context, caller model.Principal, policyID string, update model.PolicyUpdate) (*model.Policy, error) {
	args := m.Called(ctx, caller, policyID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyService) DeletePolicy(ctx context.Context, caller model.Principal, policyID string) error {
	args := m.Called(ctx, caller, policyID)
	return args.Error(0)
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyService) ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error) {
	args := m.Called(ctx, scope, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Policy), args.Error(1)
}

func (m *MockPolicyService) AnalyzeImpact(ctx context.Context, caller model.Principal, policyID string) (*model.Policy, *analyzer.Impact, error) {
	args := m.Called(ctx, caller, policyID)
	var policy *model.Policy
	if args.Get(0) != nil {
		policy = args.Get(0).(*model.Policy)
	}
	var impact *analyzer.Impact
	if args.Get(1) != nil {
		impact = args.Get(1).(*analyzer.Impact)
	}
	return policy, impact, args.Error(2)
}

// MockAccessService is a mock implementation of service.IAccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) EvaluateAccess(ctx context.Context, caller model.Principal, request *pdp_model.AccessRequest) (*pdp_model.AccessDecision, error) {
	args := m.Called(ctx, caller, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.AccessDecision), args.Error(1)
}
