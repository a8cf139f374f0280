package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/dispatch"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the keys.
	Del(ctx context.Context, keys ...string) error
}

// CachedUserStore is a Decorator that adds read-aside caching of per-user
// token lookups to any UserStore. Reconciliation writes invalidate the cache
// entries of every affected user.
type CachedUserStore struct {
	realStore dispatch.UserStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedUserStore(realStore dispatch.UserStore, cache CacheClient, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// Tokens serves from cache when possible and falls back to the real store.
func (s *CachedUserStore) Tokens(ctx context.Context, userID string) ([]string, error) {
	key := s.cacheKey(userID)

	var cached []string
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.Tokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		// Cache the empty answer too; a missing user is still a lookup.
		fresh = []string{}
	}

	// Populate Cache (Fire and Forget). Caching is an optimization, not a
	// transaction; if Redis is down we just serve from the store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

// RemoveDeadTokens delegates to the source of truth and then drops the cache
// entry of every affected user so stale tokens stop being served immediately.
func (s *CachedUserStore) RemoveDeadTokens(ctx context.Context, userIDs []string, dead []string) (int, error) {
	removed, err := s.realStore.RemoveDeadTokens(ctx, userIDs, dead)
	if err != nil {
		return removed, err
	}
	if len(userIDs) > 0 {
		keys := make([]string, 0, len(userIDs))
		for _, uid := range userIDs {
			keys = append(keys, s.cacheKey(uid))
		}
		if delErr := s.cache.Del(ctx, keys...); delErr != nil {
			return removed, fmt.Errorf("token cache invalidation failed: %w", delErr)
		}
	}
	return removed, nil
}

func (s *CachedUserStore) cacheKey(userID string) string {
	return fmt.Sprintf("push:tokens:%s", userID)
}
