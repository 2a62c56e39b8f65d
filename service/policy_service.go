// service/policy_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aegis-iam/aegis/analyzer"
	"github.com/aegis-iam/aegis/dao"
	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
	"github.com/aegis-iam/aegis/util"
)

// IPolicyService is the administration surface for policies.
type IPolicyService interface {
	CreatePolicy(ctx context.Context, caller model.Principal, policy model.Policy) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, caller model.Principal, policyID string, update model.PolicyUpdate) (*model.Policy, error)
	DeletePolicy(ctx context.Context, caller model.Principal, policyID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error)
	AnalyzeImpact(ctx context.Context, caller model.Principal, policyID string) (*model.Policy, *analyzer.Impact, error)
}

// PolicyService handles business logic for policy administration. Every
// mutation is gated on the administrator capability before any store access.
type PolicyService struct {
	store           dao.PolicyStore
	impact          *analyzer.ImpactAnalyzer
	validationUtil  *util.ValidationUtil
	cacheService    util.PolicyCache
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	locks           util.ResourceLocker
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(
	store dao.PolicyStore,
	impact *analyzer.ImpactAnalyzer,
	validationUtil *util.ValidationUtil,
	cacheService util.PolicyCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	locks util.ResourceLocker,
) *PolicyService {
	service := &PolicyService{
		store:           store,
		impact:          impact,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		locks:           locks,
	}

	eventBus.Subscribe("policy.created", service.handlePolicyChanged)
	eventBus.Subscribe("policy.updated", service.handlePolicyChanged)
	eventBus.Subscribe("policy.deleted", service.handlePolicyDeleted)

	return service
}

func (s *PolicyService) handlePolicyChanged(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	if err := s.notificationSvc.NotifyPolicyChange(ctx, changeTypeFor(event.Type), policy); err != nil {
		logger.Warn("Failed to send policy change notification",
			zap.Error(err),
			zap.String("policyID", policy.ID))
	}
	return nil
}

func (s *PolicyService) handlePolicyDeleted(ctx context.Context, event util.Event) error {
	policyID, ok := event.Payload.(string)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "deleted", model.Policy{ID: policyID}); err != nil {
		logger.Warn("Failed to send policy deletion notification",
			zap.Error(err),
			zap.String("policyID", policyID))
	}
	return nil
}

func changeTypeFor(eventType string) string {
	switch eventType {
	case "policy.created":
		return "created"
	case "policy.updated":
		return "updated"
	default:
		return "deleted"
	}
}

// CreatePolicy validates and persists a new policy with its rules.
func (s *PolicyService) CreatePolicy(ctx context.Context, caller model.Principal, policy model.Policy) (*model.Policy, error) {
	if !caller.Admin {
		return nil, aegis_errors.ErrForbidden
	}

	applyRuleDefaults(policy.Rules)
	if policy.Status == "" {
		policy.Status = model.PolicyStatusActive
	}

	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrInvalidPolicyData, err)
	}

	policy.ID = uuid.New().String()
	for i := range policy.Rules {
		if policy.Rules[i].ID == "" {
			policy.Rules[i].ID = uuid.New().String()
		}
	}
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = time.Now()
	policy.Version = 1

	policyID, err := s.store.CreatePolicy(ctx, policy, caller.UserID)
	if err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("userID", caller.UserID))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}
	policy.ID = policyID

	if err := s.cacheService.SetPolicy(ctx, policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, "policy.created", policy)

	logger.Info("Policy created successfully",
		zap.String("policyID", policyID),
		zap.String("userID", caller.UserID))
	return &policy, nil
}

// UpdatePolicy applies a partial update. When the update carries a rules
// list, the full rule set is replaced as one unit: a per-policy lock plus
// the store's version compare-and-swap guarantee concurrent readers never
// observe a mixture of old and new rules.
func (s *PolicyService) UpdatePolicy(ctx context.Context, caller model.Principal, policyID string, update model.PolicyUpdate) (*model.Policy, error) {
	if !caller.Admin {
		return nil, aegis_errors.ErrForbidden
	}

	if update.Rules != nil {
		applyRuleDefaults(*update.Rules)
		if err := s.validationUtil.ValidateRules(*update.Rules); err != nil {
			return nil, fmt.Errorf("%w: %v", aegis_errors.ErrInvalidPolicyData, err)
		}
	}
	if update.Status != nil &&
		*update.Status != model.PolicyStatusActive && *update.Status != model.PolicyStatusInactive {
		return nil, fmt.Errorf("%w: invalid status %q", aegis_errors.ErrInvalidPolicyData, *update.Status)
	}

	lockName := fmt.Sprintf("policy:%s", policyID)
	if err := s.locks.Lock(ctx, lockName); err != nil {
		return nil, fmt.Errorf("failed to serialize policy update: %w", err)
	}
	defer func() {
		if err := s.locks.Unlock(ctx, lockName); err != nil {
			logger.Error("Failed to release policy lock", zap.Error(err), zap.String("policyID", policyID))
		}
	}()

	existing, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving existing policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, err
	}

	merged := existing.Clone()
	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.Description != nil {
		merged.Description = *update.Description
	}
	if update.Priority != nil {
		merged.Priority = *update.Priority
	}
	if update.Status != nil {
		merged.Status = *update.Status
	}
	if update.Rules != nil {
		rules := append([]model.Rule(nil), (*update.Rules)...)
		for i := range rules {
			if rules[i].ID == "" {
				rules[i].ID = uuid.New().String()
			}
		}
		merged.Rules = rules
	}
	merged.UpdatedAt = time.Now()
	merged.Version = existing.Version + 1

	updated, err := s.store.UpdatePolicy(ctx, *merged, existing.Version, caller.UserID)
	if err != nil {
		logger.Error("Error updating policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.String("userID", caller.UserID))
		return nil, err
	}

	if err := s.cacheService.SetPolicy(ctx, *updated); err != nil {
		logger.Warn("Failed to update policy in cache", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, "policy.updated", *updated)

	logger.Info("Policy updated successfully",
		zap.String("policyID", policyID),
		zap.Int("version", updated.Version),
		zap.String("userID", caller.UserID))
	return updated, nil
}

// DeletePolicy removes a policy and, with it, its rules.
func (s *PolicyService) DeletePolicy(ctx context.Context, caller model.Principal, policyID string) error {
	if !caller.Admin {
		return aegis_errors.ErrForbidden
	}

	if err := s.store.DeletePolicy(ctx, policyID, caller.UserID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return aegis_errors.ErrPolicyNotFound
		}
		logger.Error("Error deleting policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.String("userID", caller.UserID))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
		logger.Warn("Failed to delete policy from cache", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, "policy.deleted", policyID)

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.String("userID", caller.UserID))
	return nil
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	cachedPolicy, err := s.cacheService.GetPolicy(ctx, policyID)
	if err == nil && cachedPolicy != nil {
		return cachedPolicy, nil
	}

	policy, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, aegis_errors.ErrInternalServer
	}

	if err := s.cacheService.SetPolicy(ctx, *policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	return policy, nil
}

// ListPolicies retrieves active policies for a scope with pagination. Rules
// come back sorted ascending by priority, the order evaluation uses.
func (s *PolicyService) ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error) {
	policies, err := s.store.ListPolicies(ctx, scope, limit, offset)
	if err != nil {
		logger.Error("Error listing policies",
			zap.Error(err),
			zap.String("scope", scope),
			zap.Int("limit", limit),
			zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	for _, policy := range policies {
		sortRulesByPriority(policy.Rules)
	}
	return policies, nil
}

// AnalyzeImpact runs the blast-radius analysis for a policy, intended as a
// dry-run gate before activation.
func (s *PolicyService) AnalyzeImpact(ctx context.Context, caller model.Principal, policyID string) (*model.Policy, *analyzer.Impact, error) {
	if !caller.Admin {
		return nil, nil, aegis_errors.ErrForbidden
	}

	policy, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			return nil, nil, aegis_errors.ErrPolicyNotFound
		}
		return nil, nil, err
	}

	impact, err := s.impact.AnalyzeImpact(ctx, policyID)
	if err != nil {
		logger.Error("Error analyzing policy impact", zap.Error(err), zap.String("policyID", policyID))
		return nil, nil, fmt.Errorf("failed to analyze policy impact: %w", err)
	}

	return policy, impact, nil
}

func applyRuleDefaults(rules []model.Rule) {
	for i := range rules {
		if rules[i].Effect == "" {
			rules[i].Effect = model.EffectAllow
		}
		// Priority zero is already the default for an unset int.
	}
}

func sortRulesByPriority(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}
