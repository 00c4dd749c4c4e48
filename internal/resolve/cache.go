package resolve

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"reclink/internal/media"
)

// Cached wraps a MediaResolver with an in-memory cache of successful
// resolutions and collapses concurrent calls for the same URL into one.
// Failures are never cached.
type Cached struct {
	next  MediaResolver
	cache *lru.Cache[string, media.Resolved]
	group singleflight.Group

	// OnHit, if set, is called for every answer served from the cache.
	OnHit func(shareURL string)
}

// NewCached creates a Cached resolver holding at most size entries.
func NewCached(next MediaResolver, size int) (*Cached, error) {
	cache, err := lru.New[string, media.Resolved](size)
	if err != nil {
		return nil, fmt.Errorf("creating resolve cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Resolve answers from the cache when possible. Callers that arrive while a
// resolution for the same URL is in flight share its result. The shared
// resolution is detached from any one caller's cancellation and is bounded by
// the strategies' own timeouts; a caller that gives up only stops waiting.
func (c *Cached) Resolve(ctx context.Context, shareURL string) (*media.Resolved, error) {
	key := strings.TrimSpace(shareURL)

	if v, ok := c.cache.Get(key); ok {
		if c.OnHit != nil {
			c.OnHit(key)
		}
		return &v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		res, err := c.next.Resolve(shared, key)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, *res)
		return *res, nil
	})

	select {
	case <-ctx.Done():
		return nil, networkError("share link", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := r.Val.(media.Resolved)
		return &res, nil
	}
}

// Forget drops any cached resolution for shareURL.
func (c *Cached) Forget(shareURL string) {
	c.cache.Remove(strings.TrimSpace(shareURL))
}
