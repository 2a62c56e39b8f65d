// service/access_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aegis-iam/aegis/audit"
	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
	"github.com/aegis-iam/aegis/pdp/engine"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
)

// IAccessService answers access requests on behalf of authenticated principals.
type IAccessService interface {
	EvaluateAccess(ctx context.Context, caller model.Principal, request *pdp_model.AccessRequest) (*pdp_model.AccessDecision, error)
}

// AccessService is the entry point for access evaluation. It validates the
// request, builds a fresh per-request evaluation context and delegates to
// the policy evaluator, recording every decision in the audit trail.
type AccessService struct {
	evaluator    *engine.PolicyEvaluator
	roleResolver pdp_model.RoleResolver
	auditService audit.Service
}

// NewAccessService creates a new instance of AccessService
func NewAccessService(evaluator *engine.PolicyEvaluator, roleResolver pdp_model.RoleResolver, auditService audit.Service) *AccessService {
	return &AccessService{
		evaluator:    evaluator,
		roleResolver: roleResolver,
		auditService: auditService,
	}
}

// EvaluateAccess decides whether the caller may perform request.Action on
// request.Resource. The returned error is ErrIndeterminate when the engine
// could not reach a decision; callers must treat that as a failure, not as
// a deny.
func (s *AccessService) EvaluateAccess(ctx context.Context, caller model.Principal, request *pdp_model.AccessRequest) (*pdp_model.AccessDecision, error) {
	if caller.UserID == "" {
		return nil, aegis_errors.ErrUnauthenticated
	}
	if request == nil || request.Resource == "" || request.Action == "" {
		return nil, fmt.Errorf("%w: resource and action are required", aegis_errors.ErrInvalidAccessRequest)
	}

	ec := pdp_model.NewEvaluationContext(caller.UserID, caller.TenantID, request.Context, s.roleResolver)

	decision, err := s.evaluator.EvaluateAccess(ctx, request, ec)
	if err != nil {
		logger.Error("Access evaluation failed",
			zap.Error(err),
			zap.String("userID", caller.UserID),
			zap.String("resource", request.Resource),
			zap.String("action", request.Action))
		return nil, err
	}

	s.recordDecision(caller, request, decision)

	logger.Info("Access evaluated",
		zap.String("userID", caller.UserID),
		zap.String("resource", request.Resource),
		zap.String("action", request.Action),
		zap.Bool("allowed", decision.Allowed),
		zap.String("policyID", decision.PolicyID))
	return decision, nil
}

// recordDecision writes the decision to the audit trail without blocking the
// caller. Audit failures are logged, never surfaced.
func (s *AccessService) recordDecision(caller model.Principal, request *pdp_model.AccessRequest, decision *pdp_model.AccessDecision) {
	entry := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        caller.UserID,
		Action:        request.Action,
		Resource:      request.Resource,
		Scope:         caller.TenantID,
		AccessGranted: decision.Allowed,
		PolicyID:      decision.PolicyID,
		RuleID:        decision.RuleID,
	}

	go func() {
		auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.auditService.LogAccess(auditCtx, entry); err != nil {
			logger.Error("Failed to record access decision",
				zap.Error(err),
				zap.String("userID", entry.UserID),
				zap.String("resource", entry.Resource))
		}
	}()
}
