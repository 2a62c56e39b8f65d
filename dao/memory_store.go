// dao/memory_store.go
package dao

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	"github.com/aegis-iam/aegis/model"
)

// MemoryPolicyStore is the reference PolicyStore used in tests and local
// development. Writes are serialized per policy through the version
// compare-and-swap; readers always observe either the fully old or fully
// new rule set because policies are replaced wholesale under the lock.
type MemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[string]*model.Policy
	seq      int
}

func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{policies: make(map[string]*model.Policy)}
}

func (s *MemoryPolicyStore) CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	if _, exists := s.policies[policy.ID]; exists {
		return "", aegis_errors.ErrPolicyConflict
	}
	s.seq++
	stored := policy.Clone()
	s.policies[policy.ID] = stored
	return policy.ID, nil
}

func (s *MemoryPolicyStore) UpdatePolicy(ctx context.Context, policy model.Policy, expectedVersion int, actorID string) (*model.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.policies[policy.ID]
	if !ok {
		return nil, aegis_errors.ErrPolicyNotFound
	}
	if existing.Version != expectedVersion {
		return nil, aegis_errors.ErrVersionConflict
	}
	stored := policy.Clone()
	stored.CreatedAt = existing.CreatedAt
	s.policies[policy.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryPolicyStore) DeletePolicy(ctx context.Context, policyID string, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[policyID]; !ok {
		return aegis_errors.ErrPolicyNotFound
	}
	// Rules live on the policy, so the cascade is implicit.
	delete(s.policies, policyID)
	return nil
}

func (s *MemoryPolicyStore) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[policyID]
	if !ok {
		return nil, aegis_errors.ErrPolicyNotFound
	}
	return policy.Clone(), nil
}

func (s *MemoryPolicyStore) ListPolicies(ctx context.Context, scope string, limit, offset int) ([]*model.Policy, error) {
	policies, err := s.ActivePolicies(ctx, scope)
	if err != nil {
		return nil, err
	}
	if offset >= len(policies) {
		return nil, nil
	}
	policies = policies[offset:]
	if limit > 0 && limit < len(policies) {
		policies = policies[:limit]
	}
	return policies, nil
}

func (s *MemoryPolicyStore) ActivePolicies(ctx context.Context, scope string) ([]*model.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var policies []*model.Policy
	for _, p := range s.policies {
		if p.Status != model.PolicyStatusActive {
			continue
		}
		if p.Scope != "" && p.Scope != scope {
			continue
		}
		policies = append(policies, p.Clone())
	}
	// Priority order with a stable ID tie-break keeps traversal
	// deterministic across calls.
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority < policies[j].Priority
		}
		return policies[i].ID < policies[j].ID
	})
	return policies, nil
}

// MemoryRoleDirectory is the reference RoleDirectory backed by a static
// role -> members mapping.
type MemoryRoleDirectory struct {
	mu      sync.RWMutex
	members map[string][]string
}

func NewMemoryRoleDirectory() *MemoryRoleDirectory {
	return &MemoryRoleDirectory{members: make(map[string][]string)}
}

// AssignRole adds a user to a role.
func (d *MemoryRoleDirectory) AssignRole(userID, roleName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.members[roleName] {
		if id == userID {
			return
		}
	}
	d.members[roleName] = append(d.members[roleName], userID)
}

func (d *MemoryRoleDirectory) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var roles []string
	for role, users := range d.members {
		for _, id := range users {
			if id == userID {
				roles = append(roles, role)
				break
			}
		}
	}
	sort.Strings(roles)
	return roles, nil
}

func (d *MemoryRoleDirectory) CountRoleMembers(ctx context.Context, roleName string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members[roleName]), nil
}
