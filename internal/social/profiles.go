package social

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blogit/backend/internal/models"
)

// ErrProfileSourceUnavailable indicates no profile source is configured.
var ErrProfileSourceUnavailable = errors.New("profile source unavailable")

// ProfileSource resolves the public display fields for a user id. The
// lifecycle core stores only ids; attaching usernames and avatars is a
// read-side projection performed by the API layer through this contract.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (models.UserSummary, error)
}

type profileEntry struct {
	summary models.UserSummary
	expires time.Time
}

// CachingProfiles wraps another ProfileSource with a TTL-based in-memory cache.
type CachingProfiles struct {
	base ProfileSource
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]profileEntry
}

// NewCachingProfiles returns a ProfileSource that caches lookups for the provided TTL.
func NewCachingProfiles(base ProfileSource, ttl time.Duration) *CachingProfiles {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProfiles{
		base:  base,
		ttl:   ttl,
		items: make(map[string]profileEntry),
	}
}

// Profile returns a cached summary when available, otherwise it delegates
// to the underlying source and stores the result.
func (c *CachingProfiles) Profile(ctx context.Context, userID string) (models.UserSummary, error) {
	if c == nil || c.base == nil {
		return models.UserSummary{}, ErrProfileSourceUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[userID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.summary, nil
	}

	summary, err := c.base.Profile(ctx, userID)
	if err != nil {
		return models.UserSummary{}, err
	}

	c.mu.Lock()
	c.items[userID] = profileEntry{summary: summary, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return summary, nil
}

// Invalidate drops the cached entry for a user, used after profile updates.
func (c *CachingProfiles) Invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()
}
