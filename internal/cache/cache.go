package cache

import (
	"context"
	"errors"

	"github.com/fjod/products-api/internal/domain"
)

// ProductCache caches product reads. Every key is scoped to a generation;
// callers read Generation first and pass it to the getters and setters so a
// concurrent Invalidate can never be overwritten by a stale refill.
type ProductCache interface {
	Generation(ctx context.Context) (int64, error)
	GetList(ctx context.Context, gen int64) ([]domain.Product, error)
	SetList(ctx context.Context, gen int64, products []domain.Product) error
	GetByTitle(ctx context.Context, gen int64, title string) (*domain.Product, error)
	SetByTitle(ctx context.Context, gen int64, title string, product *domain.Product) error
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is used when no cache is configured. Every read misses.
type Noop struct{}

func (Noop) Generation(context.Context) (int64, error) { return 0, nil }

func (Noop) GetList(context.Context, int64) ([]domain.Product, error) { return nil, ErrCacheMiss }

func (Noop) SetList(context.Context, int64, []domain.Product) error { return nil }

func (Noop) GetByTitle(context.Context, int64, string) (*domain.Product, error) {
	return nil, ErrCacheMiss
}

func (Noop) SetByTitle(context.Context, int64, string, *domain.Product) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }
