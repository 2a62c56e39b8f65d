// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/aegis-iam/aegis/audit"
	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

// PolicyDAO persists policies as POLICY nodes. The rule set is stored as a
// JSON property of the node, so a rule-set replacement is a single property
// write inside one transaction: concurrent readers observe either the fully
// old or the fully new rule set, never a mixture.
type PolicyDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPolicyDAO(driver neo4j.Driver, auditService audit.Service) *PolicyDAO {
	dao := &PolicyDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Policy ID
func (dao *PolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_id IF NOT EXISTS
        FOR (p:POLICY) REQUIRE p.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Policy ID", zap.Error(err))
		return err
	}
	return nil
}

// CreatePolicy creates a new policy node in Neo4j
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new policy", zap.String("policyName", policy.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (p:POLICY {id: $id})
        RETURN p.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": policy.ID})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrPolicyConflict
		}

		createQuery := `
        CREATE (p:POLICY {id: $id})
        SET p += $props
        RETURN p.id as id
        `
		rulesJSON, _ := json.Marshal(policy.Rules)

		parameters := map[string]interface{}{
			"id": policy.ID,
			"props": map[string]interface{}{
				"name":        policy.Name,
				"description": policy.Description,
				"priority":    policy.Priority,
				"status":      policy.Status,
				"scope":       policy.Scope,
				"version":     policy.Version,
				"createdAt":   policy.CreatedAt.Format(time.RFC3339),
				"updatedAt":   policy.UpdatedAt.Format(time.RFC3339),
				"rules":       string(rulesJSON),
			},
		}
		createResult, err := transaction.Run(createQuery, parameters)
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			id, found := createResult.Record().Get("id")
			if !found {
				return nil, aegis_errors.ErrInternalServer
			}
			return id, nil
		}
		return nil, aegis_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	policyID := fmt.Sprintf("%v", result)
	logger.Info("Policy created successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	dao.writeAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		Action:        "CREATE_POLICY",
		Scope:         policy.Scope,
		AccessGranted: true,
		PolicyID:      policyID,
		ChangeDetails: createChangeDetails(nil, &policy),
	})
	return policyID, nil
}

// UpdatePolicy replaces the stored policy, including its full rule set, iff
// the stored version still equals expectedVersion.
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy, expectedVersion int, actorID string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	oldPolicy, err := dao.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	var updatedPolicy *model.Policy
	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY {id: $id})
        WHERE p.version = $expectedVersion
        SET p.name = $name, p.description = $description, p.priority = $priority,
            p.status = $status, p.version = $version, p.updatedAt = $updatedAt,
            p.rules = $rules
        RETURN p
        `
		rulesJSON, _ := json.Marshal(policy.Rules)

		parameters := map[string]interface{}{
			"id":              policy.ID,
			"expectedVersion": expectedVersion,
			"name":            policy.Name,
			"description":     policy.Description,
			"priority":        policy.Priority,
			"status":          policy.Status,
			"version":         policy.Version,
			"updatedAt":       time.Now().Format(time.RFC3339),
			"rules":           string(rulesJSON),
		}
		result, err := transaction.Run(query, parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to execute update query: %w", err)
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			updatedPolicy, err = mapNodeToPolicy(node)
			return nil, err
		}
		// The policy exists (GetPolicy above succeeded), so a missing row
		// means the version check failed.
		return nil, aegis_errors.ErrVersionConflict
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))

	dao.writeAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		Action:        "UPDATE_POLICY",
		Scope:         policy.Scope,
		AccessGranted: true,
		PolicyID:      policy.ID,
		ChangeDetails: createChangeDetails(oldPolicy, updatedPolicy),
	})

	return updatedPolicy, nil
}

// DeletePolicy deletes a policy node. Rules live on the node, so the
// cascade is implicit: no orphaned rules can remain.
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID string, actorID string) error {
	start := time.Now()
	logger.Info("Deleting policy", zap.String("policyID", policyID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY {id: $id})
        DETACH DELETE p
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": policyID})
		if err != nil {
			return nil, fmt.Errorf("failed to execute delete query: %w", err)
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, fmt.Errorf("failed to consume delete result: %w", err)
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Policy deleted successfully",
		zap.String("policyID", policyID),
		zap.Duration("duration", duration))

	dao.writeAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		Action:        "DELETE_POLICY",
		AccessGranted: true,
		PolicyID:      policyID,
	})

	return nil
}

// GetPolicy retrieves a policy from Neo4j by its ID
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY {id: $id})
    RETURN p
    `
	result, err := session.Run(query, map[string]interface{}{"id": policyID})
	if err != nil {
		logger.Error("Failed to execute get policy query",
			zap.Error(err),
			zap.String("policyID", policyID))
		return nil, fmt.Errorf("failed to execute get policy query: %w", err)
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		return policy, nil
	}

	logger.Warn("Policy not found", zap.String("policyID", policyID))
	return nil, aegis_errors.ErrPolicyNotFound
}

// ListPolicies retrieves active policies for a scope with pagination,
// sorted ascending by priority.
func (dao *PolicyDAO) ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error) {
	start := time.Now()
	logger.Info("Listing policies", zap.String("scope", scope), zap.Int("limit", limit), zap.Int("offset", offset))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY)
    WHERE p.status = $status AND (p.scope = '' OR p.scope = $scope)
    RETURN p
    ORDER BY p.priority ASC, p.createdAt ASC
    SKIP $offset
    LIMIT $limit
    `
	result, err := session.Run(query, map[string]interface{}{
		"status": model.PolicyStatusActive,
		"scope":  scope,
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list policies query",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to execute list policies query: %w", err)
	}

	policies, err := collectPolicies(result)
	if err != nil {
		return nil, err
	}

	logger.Info("Policies listed successfully",
		zap.Int("count", len(policies)),
		zap.Duration("duration", time.Since(start)))

	return policies, nil
}

// ActivePolicies retrieves every active policy visible to the scope, sorted
// ascending by priority. This is the evaluation path's retrieval query.
func (dao *PolicyDAO) ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (p:POLICY)
    WHERE p.status = $status AND (p.scope = '' OR p.scope = $scope)
    RETURN p
    ORDER BY p.priority ASC, p.createdAt ASC
    `
	result, err := session.Run(query, map[string]interface{}{
		"status": model.PolicyStatusActive,
		"scope":  scope,
	})
	if err != nil {
		logger.Error("Failed to execute active policies query",
			zap.Error(err),
			zap.String("scope", scope))
		return nil, fmt.Errorf("failed to execute active policies query: %w", err)
	}

	return collectPolicies(result)
}

func collectPolicies(result neo4j.Result) ([]*model.Policy, error) {
	var policies []*model.Policy
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, fmt.Errorf("failed to map policy node to struct: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func (dao *PolicyDAO) writeAudit(ctx context.Context, log audit.AuditLog) {
	if err := dao.AuditService.LogAccess(ctx, log); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}
}

// Helper function to create change details for audit log
func createChangeDetails(oldPolicy, newPolicy *model.Policy) json.RawMessage {
	changes := make(map[string]interface{})
	if oldPolicy == nil {
		changes["action"] = "created"
	} else if newPolicy == nil {
		changes["action"] = "deleted"
	} else {
		changes["action"] = "updated"
		if oldPolicy.Name != newPolicy.Name {
			changes["name"] = map[string]string{"old": oldPolicy.Name, "new": newPolicy.Name}
		}
		if oldPolicy.Status != newPolicy.Status {
			changes["status"] = map[string]string{"old": oldPolicy.Status, "new": newPolicy.Status}
		}
		if len(oldPolicy.Rules) != len(newPolicy.Rules) {
			changes["rule_count"] = map[string]int{"old": len(oldPolicy.Rules), "new": len(newPolicy.Rules)}
		}
	}
	changeDetails, _ := json.Marshal(changes)
	return changeDetails
}

// Helper function to map Neo4j Node to Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	if id, ok := props["id"].(string); ok {
		policy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		policy.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props["name"])
	}

	if description, ok := props["description"].(string); ok {
		policy.Description = description
	}

	if status, ok := props["status"].(string); ok {
		if status != model.PolicyStatusActive && status != model.PolicyStatusInactive {
			return nil, fmt.Errorf("invalid policy status: %v", status)
		}
		policy.Status = status
	} else {
		return nil, fmt.Errorf("failed to assert type for policy status: %v", props["status"])
	}

	if scope, ok := props["scope"].(string); ok {
		policy.Scope = scope
	}

	if priority, ok := props["priority"].(int64); ok {
		policy.Priority = int(priority)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy priority: %v", props["priority"])
	}

	if version, ok := props["version"].(int64); ok {
		policy.Version = int(version)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy version: %v", props["version"])
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		policy.CreatedAt = parseTime(createdAt)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy createdAt: %v", props["createdAt"])
	}

	if updatedAt, ok := props["updatedAt"].(string); ok {
		policy.UpdatedAt = parseTime(updatedAt)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy updatedAt: %v", props["updatedAt"])
	}

	if rulesJSON, ok := props["rules"].(string); ok {
		if err := json.Unmarshal([]byte(rulesJSON), &policy.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy rules: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy rules: %v", props["rules"])
	}

	return policy, nil
}

// Helper function to parse time
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
