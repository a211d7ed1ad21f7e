package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "summary:stu-1", map[string]string{"a": "b"})
	assert.Empty(t, repo.items)
	var dest map[string]string
	assert.False(t, svc.Get(context.Background(), "summary:stu-1", &dest))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	nilSvc.InvalidateStudent(context.Background(), "stu-1")
}

func TestCacheServiceHitMissAndInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var dest map[string]int
	assert.False(t, svc.Get(context.Background(), summaryCacheKey("stu-1"), &dest))

	svc.Set(context.Background(), summaryCacheKey("stu-1"), map[string]int{"level": 200})
	require.True(t, svc.Get(context.Background(), summaryCacheKey("stu-1"), &dest))
	assert.Equal(t, 200, dest["level"])

	svc.InvalidateStudent(context.Background(), "stu-1")
	assert.ElementsMatch(t, []string{"summary:stu-1", "transcript:stu-1"}, repo.deleted)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceDegradesOnBackendFailure(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, true)

	var dest map[string]int
	assert.False(t, svc.Get(context.Background(), "summary:stu-1", &dest))
	svc.Set(context.Background(), "summary:stu-1", map[string]int{"level": 200})
	svc.InvalidateStudent(context.Background(), "stu-1")
}
