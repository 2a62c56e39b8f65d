// dao/memory_store_test.go
package dao

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	"github.com/aegis-iam/aegis/model"
)

func activePolicy(id string, priority int, rules ...model.Rule) model.Policy {
	return model.Policy{
		ID:       id,
		Name:     id,
		Priority: priority,
		Status:   model.PolicyStatusActive,
		Rules:    rules,
		Version:  1,
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	id, err := store.CreatePolicy(ctx, activePolicy("p1", 1), "admin")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	got, err := store.GetPolicy(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Name)

	_, err = store.CreatePolicy(ctx, activePolicy("p1", 1), "admin")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyConflict)

	_, err = store.GetPolicy(ctx, "missing")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	_, err := store.CreatePolicy(ctx, activePolicy("p1", 1, model.Rule{ID: "r1", Effect: model.EffectAllow}), "admin")
	require.NoError(t, err)

	got, err := store.GetPolicy(ctx, "p1")
	require.NoError(t, err)
	got.Rules[0].Effect = model.EffectDeny

	again, err := store.GetPolicy(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, model.EffectAllow, again.Rules[0].Effect)
}

func TestMemoryStoreVersionCompareAndSwap(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	_, err := store.CreatePolicy(ctx, activePolicy("p1", 1), "admin")
	require.NoError(t, err)

	updated := activePolicy("p1", 2)
	updated.Version = 2
	_, err = store.UpdatePolicy(ctx, updated, 1, "admin")
	require.NoError(t, err)

	// A writer still holding the old version must be rejected.
	stale := activePolicy("p1", 3)
	stale.Version = 2
	_, err = store.UpdatePolicy(ctx, stale, 1, "admin")
	assert.ErrorIs(t, err, aegis_errors.ErrVersionConflict)

	_, err = store.UpdatePolicy(ctx, activePolicy("missing", 1), 1, "admin")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyNotFound)
}

func TestMemoryStoreAtomicRuleReplacement(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	oldRules := []model.Rule{
		{ID: "old-1", Effect: model.EffectAllow},
		{ID: "old-2", Effect: model.EffectAllow},
	}
	newRules := []model.Rule{
		{ID: "new-1", Effect: model.EffectDeny},
		{ID: "new-2", Effect: model.EffectDeny},
	}

	_, err := store.CreatePolicy(ctx, activePolicy("p1", 1, oldRules...), "admin")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		updated := activePolicy("p1", 1, newRules...)
		updated.Version = 2
		_, _ = store.UpdatePolicy(ctx, updated, 1, "admin")
	}()

	// Readers racing the update must see the fully old or fully new rule
	// set, never a mixture.
	for i := 0; i < 100; i++ {
		got, err := store.GetPolicy(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, got.Rules, 2)
		switch got.Rules[0].ID {
		case "old-1":
			assert.Equal(t, "old-2", got.Rules[1].ID)
		case "new-1":
			assert.Equal(t, "new-2", got.Rules[1].ID)
		default:
			t.Fatalf("unexpected rule set: %+v", got.Rules)
		}
	}
	wg.Wait()
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	_, err := store.CreatePolicy(ctx, activePolicy("p1", 1, model.Rule{ID: "r1"}), "admin")
	require.NoError(t, err)

	require.NoError(t, store.DeletePolicy(ctx, "p1", "admin"))

	_, err = store.GetPolicy(ctx, "p1")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyNotFound)

	assert.ErrorIs(t, store.DeletePolicy(ctx, "p1", "admin"), aegis_errors.ErrPolicyNotFound)
}

func TestMemoryStoreActivePolicies(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	global := activePolicy("a-global", 2)
	scoped := activePolicy("b-scoped", 1)
	scoped.Scope = "tenant-a"
	foreign := activePolicy("c-foreign", 1)
	foreign.Scope = "tenant-b"
	inactive := activePolicy("d-inactive", 0)
	inactive.Status = model.PolicyStatusInactive

	for _, p := range []model.Policy{global, scoped, foreign, inactive} {
		_, err := store.CreatePolicy(ctx, p, "admin")
		require.NoError(t, err)
	}

	policies, err := store.ActivePolicies(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "b-scoped", policies[0].ID)
	assert.Equal(t, "a-global", policies[1].ID)
}

func TestMemoryStoreActivePoliciesTieBreak(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	for _, id := range []string{"zz", "aa", "mm"} {
		_, err := store.CreatePolicy(ctx, activePolicy(id, 5), "admin")
		require.NoError(t, err)
	}

	// Equal priorities must still come back in a stable order.
	for i := 0; i < 10; i++ {
		policies, err := store.ActivePolicies(ctx, "")
		require.NoError(t, err)
		require.Len(t, policies, 3)
		assert.Equal(t, "aa", policies[0].ID)
		assert.Equal(t, "mm", policies[1].ID)
		assert.Equal(t, "zz", policies[2].ID)
	}
}

func TestMemoryStoreListPoliciesPagination(t *testing.T) {
	store := NewMemoryPolicyStore()
	ctx := context.Background()

	for i, id := range []string{"p1", "p2", "p3"} {
		_, err := store.CreatePolicy(ctx, activePolicy(id, i), "admin")
		require.NoError(t, err)
	}

	page, err := store.ListPolicies(ctx, "", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p1", page[0].ID)

	page, err = store.ListPolicies(ctx, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p3", page[0].ID)

	page, err = store.ListPolicies(ctx, "", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryRoleDirectory(t *testing.T) {
	dir := NewMemoryRoleDirectory()
	ctx := context.Background()

	dir.AssignRole("u1", "auditor")
	dir.AssignRole("u1", "viewer")
	dir.AssignRole("u2", "auditor")
	dir.AssignRole("u2", "auditor") // idempotent

	roles, err := dir.GetUserRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"auditor", "viewer"}, roles)

	count, err := dir.CountRoleMembers(ctx, "auditor")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = dir.CountRoleMembers(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, count)
}
