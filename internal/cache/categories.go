package cache

import (
	"context"
	"slices"
	"time"

	"ledger/internal/core"
	"ledger/internal/repository"
)

// DefaultCategoryTTL bounds how long a category added by another process
// can stay invisible.
const DefaultCategoryTTL = 30 * time.Second

// CategoryRepository serves ListCategories from memory. Every listing and
// every write validates against the category set, so the cache takes one
// query per request off the database. AddCategory through this wrapper
// invalidates immediately.
type CategoryRepository struct {
	repository.Repository
	cats *TTLValue[[]core.Category]
}

func WithCategoryCache(repo repository.Repository, ttl time.Duration) *CategoryRepository {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryRepository{Repository: repo, cats: NewTTLValue[[]core.Category](ttl)}
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cached, gen, ok := r.cats.Get()
	if ok {
		return slices.Clone(cached), nil
	}
	cats, err := r.Repository.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	r.cats.Set(gen, slices.Clone(cats))
	return cats, nil
}

func (r *CategoryRepository) AddCategory(ctx context.Context, c core.Category) error {
	defer r.cats.Invalidate()
	return r.Repository.AddCategory(ctx, c)
}
