package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/repository"
	"ledger/internal/storage/memory"
)

func TestTTLValue_Expires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := NewTTLValue[int](time.Minute)
	v.now = func() time.Time { return now }

	_, gen, ok := v.Get()
	assert.False(t, ok, "empty")
	assert.True(t, v.Set(gen, 7))

	got, _, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 7, got)

	now = now.Add(time.Minute)
	_, _, ok = v.Get()
	assert.False(t, ok, "expired at ttl")
}

func TestTTLValue_InvalidateDropsRacingFill(t *testing.T) {
	v := NewTTLValue[string](time.Minute)

	_, gen, _ := v.Get()
	v.Invalidate()
	assert.False(t, v.Set(gen, "stale"), "fill started before the invalidation")
	_, _, ok := v.Get()
	assert.False(t, ok)

	_, gen, _ = v.Get()
	assert.True(t, v.Set(gen, "fresh"))
	got, _, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

// addDuringList adds a category on the inner store while the wrapper's
// listing is in flight.
type addDuringList struct {
	repository.Repository
	onList func()
}

func (r *addDuringList) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.Repository.ListCategories(ctx)
	if r.onList != nil {
		f := r.onList
		r.onList = nil
		f()
	}
	return cats, err
}

func TestCategoryRepository_ConcurrentAddIsNotMasked(t *testing.T) {
	ctx := context.Background()
	inner := &addDuringList{Repository: memory.New(core.DefaultCategories)}
	repo := WithCategoryCache(inner, time.Minute)
	inner.onList = func() { require.NoError(t, repo.AddCategory(ctx, "Travel")) }

	first, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotContains(t, first, core.Category("Travel"))

	second, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, second, core.Category("Travel"), "stale listing was not cached")
}

type countingRepo struct {
	repository.Repository
	lists int
}

func (r *countingRepo) ListCategories(ctx context.Context) ([]core.Category, error) {
	r.lists++
	return r.Repository.ListCategories(ctx)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(core.DefaultCategories)}
	repo := WithCategoryCache(inner, time.Minute)

	first, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.lists, "second listing is served from memory")
	assert.ElementsMatch(t, core.DefaultCategories, second, "callers cannot corrupt the cached slice")

	require.NoError(t, repo.AddCategory(ctx, "Travel"))
	third, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, third, core.Category("Travel"))
	assert.Equal(t, 2, inner.lists, "add invalidates")

	assert.ErrorIs(t, repo.AddCategory(ctx, "Travel"), core.ErrConflict)
}
