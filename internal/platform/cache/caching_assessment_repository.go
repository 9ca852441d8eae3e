// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"before_you_sign/internal/feature/assessment/domain/entity"
	"before_you_sign/internal/feature/assessment/usecase"
)

// CachingAssessmentRepository decorates an AssessmentRepository with Redis
// caching of digest lookups. FindByID and List always hit the inner repository.
type CachingAssessmentRepository struct {
	inner     usecase.AssessmentRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.AssessmentRepository = (*CachingAssessmentRepository)(nil)

// NewCachingAssessmentRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "assessments".
// A nil rdb disables caching.
func NewCachingAssessmentRepository(rdb *redis.Client, ttl time.Duration, inner usecase.AssessmentRepository, namespace string) *CachingAssessmentRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "assessments"
	}
	return &CachingAssessmentRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindByDigest checks the cache first, then falls back to the inner repository.
func (c *CachingAssessmentRepository) FindByDigest(ctx context.Context, digest string) (*entity.Assessment, error) {
	if c.rdb == nil {
		return c.inner.FindByDigest(ctx, digest)
	}

	key := c.digestKey(digest)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Assessment
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.FindByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	c.store(ctx, out)
	return out, nil
}

// Save writes to the inner repository, then refreshes the cache entry.
func (c *CachingAssessmentRepository) Save(ctx context.Context, a *entity.Assessment) error {
	if err := c.inner.Save(ctx, a); err != nil {
		return err
	}
	if c.rdb != nil {
		c.store(ctx, a)
	}
	return nil
}

func (c *CachingAssessmentRepository) FindByID(ctx context.Context, id string) (*entity.Assessment, error) {
	return c.inner.FindByID(ctx, id)
}

func (c *CachingAssessmentRepository) List(ctx context.Context, limit int) ([]entity.Assessment, error) {
	return c.inner.List(ctx, limit)
}

func (c *CachingAssessmentRepository) store(ctx context.Context, a *entity.Assessment) {
	rec := *a
	rec.Cached = false
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.digestKey(a.Digest), b, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "failed to cache assessment", "digest", a.Digest, "error", err)
	}
}

// digestKey generates the cache key for a document digest.
func (c *CachingAssessmentRepository) digestKey(digest string) string {
	return c.namespace + ":digest:" + digest
}
