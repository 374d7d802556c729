package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fjod/products-api/internal/cache"
	"github.com/fjod/products-api/internal/domain"
	"github.com/fjod/products-api/internal/events"
	"github.com/fjod/products-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	backgroundTimeout = 5 * time.Second
	// sharedLookupTimeout bounds a title lookup shared by several callers.
	sharedLookupTimeout = 30 * time.Second
)

type ProductService struct {
	repo      repository.ProductRepository
	cache     cache.ProductCache
	publisher events.Publisher
	log       *zap.SugaredLogger
	sfg       singleflight.Group // Collapses concurrent misses for the same title
	now       func() time.Time

	// writes counts completed writes; lookups started before a write are not shared after it.
	writes atomic.Uint64
	// failedInvalidations and healedInvalidations track writes whose cache
	// invalidation failed. The cache is bypassed until a later INCR succeeds.
	failedInvalidations atomic.Uint64
	healedInvalidations atomic.Uint64
}

func NewProductService(
	repo repository.ProductRepository,
	c cache.ProductCache,
	publisher events.Publisher,
	log *zap.SugaredLogger,
) *ProductService {
	if c == nil {
		c = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ProductService{
		repo:      repo,
		cache:     c,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *ProductService) Create(ctx context.Context, fields domain.ProductFields) (*domain.Product, error) {
	product := domain.NewProduct(fields, s.now())

	if err := s.repo.Insert(ctx, product); err != nil {
		s.log.Errorw("repo insert product error", "error", err)
		return nil, err
	}

	s.afterWrite(events.ProductCreated, product)
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	gen, cacheOK := s.generation(ctx)
	if cacheOK {
		products, err := s.cache.GetList(ctx, gen)
		if err == nil {
			return products, nil
		}
		s.logCacheErr("cache get list error", err)
	}

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log.Errorw("repo find all products error", "error", err)
		return nil, err
	}

	if cacheOK {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
			defer cancel()
			if err := s.cache.SetList(bgCtx, gen, products); err != nil {
				s.log.Warnw("cache set list error", "error", err)
			}
		}()
	}

	return products, nil
}

func (s *ProductService) FindByTitle(ctx context.Context, title string) (*domain.Product, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The shared lookup is detached from any single caller so one cancelled
	// request cannot fail the others.
	key := strconv.FormatUint(s.writes.Load(), 10) + ":" + title
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return s.findByTitle(lookupCtx, title)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Product), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ProductService) findByTitle(ctx context.Context, title string) (*domain.Product, error) {
	gen, cacheOK := s.generation(ctx)
	if cacheOK {
		product, err := s.cache.GetByTitle(ctx, gen, title)
		if err == nil {
			return product, nil
		}
		s.logCacheErr("cache get by title error", err)
	}

	product, err := s.repo.FindOneByTitle(ctx, title)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Errorw("repo find product by title error", "title", title, "error", err)
		return nil, err
	}

	if cacheOK {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
			defer cancel()
			if err := s.cache.SetByTitle(bgCtx, gen, title, product); err != nil {
				s.log.Warnw("cache set by title error", "title", title, "error", err)
			}
		}()
	}

	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error) {
	product, err := s.repo.FindByIDAndUpdate(ctx, id, update)
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			s.log.Errorw("repo update product error", "id", id, "error", err)
		}
		return nil, translate(err)
	}

	s.afterWrite(events.ProductUpdated, product)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.FindByIDAndDelete(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrProductNotFound) {
			s.log.Errorw("repo delete product error", "id", id, "error", err)
		}
		return nil, translate(err)
	}

	s.afterWrite(events.ProductDeleted, product)
	return product, nil
}

// generation reads the cache generation; false means the cache is bypassed for this call.
// After a failed invalidation the generation is bumped here first, so entries
// cached before that write are never served.
func (s *ProductService) generation(ctx context.Context) (int64, bool) {
	if failed := s.failedInvalidations.Load(); s.healedInvalidations.Load() < failed {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warnw("cache invalidate retry error", "error", err)
			return 0, false
		}
		for {
			healed := s.healedInvalidations.Load()
			if healed >= failed || s.healedInvalidations.CompareAndSwap(healed, failed) {
				break
			}
		}
		s.log.Infow("cache invalidation recovered", "failed_writes", failed)
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warnw("cache generation error", "error", err)
		return 0, false
	}
	return gen, true
}

func (s *ProductService) logCacheErr(msg string, err error) {
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warnw(msg, "error", err) // log cache error but continue
	}
}

// afterWrite invalidates cached reads synchronously, so the next read sees the
// write, and publishes the change event in the background.
func (s *ProductService) afterWrite(t events.EventType, product *domain.Product) {
	s.writes.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx); err != nil {
		s.failedInvalidations.Add(1)
		s.log.Warnw("cache invalidate error, bypassing cache until it succeeds", "error", err)
	}

	event := events.NewEvent(t, product)
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer pubCancel()
		if err := s.publisher.Publish(pubCtx, event); err != nil {
			s.log.Warnw("publish event error", "event_type", event.Type, "product_id", event.ProductID, "error", err)
		}
	}()
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrInvalidID):
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	default:
		return err
	}
}
