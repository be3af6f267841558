package tenants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

const cacheKeyPrefix = "tenants:provider-config:"

// noOverride is the negative-cache marker for tenants with no stored
// override, so their lookups don't hit Postgres on every send.
const noOverride = "none"

// CachedRepository is a read-through Redis cache in front of Repository.
// Cache failures degrade to direct Postgres reads; they are never surfaced.
type CachedRepository struct {
	inner  *Repository
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedRepository(inner *Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if inner == nil || client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

var _ messaging.TenantConfigSource = (*CachedRepository)(nil)

// ProviderConfig serves the override from cache when possible.
func (c *CachedRepository) ProviderConfig(ctx context.Context, tenantID string) (*messaging.CredentialSet, error) {
	key := cacheKeyPrefix + tenantID
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if cached == noOverride {
			return nil, nil
		}
		var creds messaging.CredentialSet
		if jsonErr := json.Unmarshal([]byte(cached), &creds); jsonErr == nil {
			return &creds, nil
		}
		// Corrupt entry: fall through and repopulate.
		c.logger.Warn("dropping unreadable tenant config cache entry", "tenant_id", tenantID)
	} else if err != redis.Nil {
		c.logger.Warn("tenant config cache read failed", "tenant_id", tenantID, "error", err)
	}

	creds, err := c.inner.ProviderConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, creds)
	return creds, nil
}

// UpsertProviderConfig writes through to Postgres and invalidates the cache.
func (c *CachedRepository) UpsertProviderConfig(ctx context.Context, tenantID string, creds messaging.CredentialSet) error {
	if err := c.inner.UpsertProviderConfig(ctx, tenantID, creds); err != nil {
		return err
	}
	c.invalidate(ctx, tenantID)
	return nil
}

// DeleteProviderConfig removes the override and invalidates the cache.
func (c *CachedRepository) DeleteProviderConfig(ctx context.Context, tenantID string) error {
	if err := c.inner.DeleteProviderConfig(ctx, tenantID); err != nil {
		return err
	}
	c.invalidate(ctx, tenantID)
	return nil
}

func (c *CachedRepository) store(ctx context.Context, key string, creds *messaging.CredentialSet) {
	value := noOverride
	if creds != nil {
		encoded, err := json.Marshal(creds)
		if err != nil {
			return
		}
		value = string(encoded)
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("tenant config cache write failed", "key", key, "error", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, tenantID string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+tenantID).Err(); err != nil {
		c.logger.Warn("tenant config cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}
