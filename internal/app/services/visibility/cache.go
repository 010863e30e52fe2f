package visibility

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nimbus-paas/control_plane/internal/app/metrics"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// CachedScopeSource wraps a ScopeSource with a short-TTL redis cache of each
// grant set per principal. Role grants change rarely relative to listing
// traffic; a stale window of one TTL is acceptable for scoping reads.
type CachedScopeSource struct {
	inner  ScopeSource
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedScopeSource builds the caching decorator.
func NewCachedScopeSource(inner ScopeSource, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedScopeSource {
	if log == nil {
		log = logger.NewDefault("visibility-cache")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedScopeSource{inner: inner, client: client, ttl: ttl, log: log}
}

func (c *CachedScopeSource) cached(ctx context.Context, key, principal string,
	query func(context.Context, string) ([]string, error)) ([]string, error) {

	redisKey := "visibility:" + key + ":" + principal

	if raw, err := c.client.Get(ctx, redisKey).Bytes(); err == nil {
		var guids []string
		if err := json.Unmarshal(raw, &guids); err == nil {
			metrics.RecordVisibilityLookup("cache")
			return guids, nil
		}
	} else if err != redis.Nil {
		// Cache trouble must not block scoping; fall through to the store.
		c.log.WithError(err).Warn("visibility cache read failed")
	}

	guids, err := query(ctx, principal)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(guids); err == nil {
		if err := c.client.Set(ctx, redisKey, raw, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("visibility cache write failed")
		}
	}
	return guids, nil
}

func (c *CachedScopeSource) DeveloperSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return c.cached(ctx, "developer", principal, c.inner.DeveloperSpaceGUIDs)
}

func (c *CachedScopeSource) ManagerSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return c.cached(ctx, "manager", principal, c.inner.ManagerSpaceGUIDs)
}

func (c *CachedScopeSource) AuditorSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return c.cached(ctx, "auditor", principal, c.inner.AuditorSpaceGUIDs)
}

func (c *CachedScopeSource) OrgManagedSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return c.cached(ctx, "org_managed", principal, c.inner.OrgManagedSpaceGUIDs)
}

// Invalidate drops the cached grant sets for a principal, for callers that
// change role memberships and need the next lookup to hit the store.
func (c *CachedScopeSource) Invalidate(ctx context.Context, principal string) error {
	keys := []string{
		"visibility:developer:" + principal,
		"visibility:manager:" + principal,
		"visibility:auditor:" + principal,
		"visibility:org_managed:" + principal,
	}
	return c.client.Del(ctx, keys...).Err()
}
