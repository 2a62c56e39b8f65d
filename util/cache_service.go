// util/cache_service.go

package util

import (
	"context"

	"github.com/aegis-iam/aegis/db"
	"github.com/aegis-iam/aegis/model"
)

// PolicyCache is the policy read-through cache surface.
type PolicyCache interface {
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	SetPolicy(ctx context.Context, policy model.Policy) error
	DeletePolicy(ctx context.Context, policyID string) error
}

// CacheService backs PolicyCache with the encrypted Redis cache.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return db.GetCachedPolicy(ctx, policyID)
}

func (c *CacheService) SetPolicy(ctx context.Context, policy model.Policy) error {
	return db.CachePolicy(ctx, &policy)
}

func (c *CacheService) DeletePolicy(ctx context.Context, policyID string) error {
	return db.DeleteCachedPolicy(ctx, policyID)
}
