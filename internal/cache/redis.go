package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/fjod/products-api/internal/domain"
	"github.com/fjod/products-api/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
)

const generationKey = "products:gen"

func NewRedisCache(client *redis.Client, baseTTL time.Duration, breaker *circuitbreaker.Breaker) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
		breaker: breaker,
	}
}

// NewBreaker returns a breaker that does not count cache misses as failures.
func NewBreaker(onStateChange func(name, from, to string)) *circuitbreaker.Breaker {
	return circuitbreaker.New(circuitbreaker.Settings{
		Name: "redis-cache",
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: onStateChange,
	})
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	breaker *circuitbreaker.Breaker
}

var _ ProductCache = (*RedisCache)(nil)

func (r *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := guard(r, func() (int64, error) {
		return r.client.Get(ctx, generationKey).Int64()
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (r *RedisCache) GetList(ctx context.Context, gen int64) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.get(ctx, listKey(gen), &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (r *RedisCache) SetList(ctx context.Context, gen int64, products []domain.Product) error {
	return r.set(ctx, listKey(gen), products)
}

func (r *RedisCache) GetByTitle(ctx context.Context, gen int64, title string) (*domain.Product, error) {
	var product domain.Product
	if err := r.get(ctx, titleKey(gen, title), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *RedisCache) SetByTitle(ctx context.Context, gen int64, title string, product *domain.Product) error {
	return r.set(ctx, titleKey(gen, title), product)
}

// Invalidate bumps the generation; keys of older generations expire on their own.
func (r *RedisCache) Invalidate(ctx context.Context) error {
	_, err := guard(r, func() (int64, error) {
		return r.client.Incr(ctx, generationKey).Result()
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := guard(r, func() ([]byte, error) {
		return r.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal cached products failed: %w", err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal products failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	_, err = guard(r, func() (string, error) {
		return r.client.Set(ctx, key, data, ttl).Result()
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func guard[T any](r *RedisCache, fn func() (T, error)) (T, error) {
	if r.breaker == nil {
		return fn()
	}
	return circuitbreaker.Do(r.breaker, fn)
}

func listKey(gen int64) string {
	return "products:" + strconv.FormatInt(gen, 10) + ":all"
}

func titleKey(gen int64, title string) string {
	return fmt.Sprintf("products:%d:title:%s", gen, title)
}
