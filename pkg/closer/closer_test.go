package closer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_LIFO(t *testing.T) {
	c := New(0)
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.Add("mongo", record("mongo"))
	c.Add("redis", record("redis"))
	c.Add("http", record("http"))

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"http", "redis", "mongo"}, order)
}

func TestClose_CollectsErrors(t *testing.T) {
	c := New(0)
	calls := 0
	c.AddErr("kafka", func() error { calls++; return errors.New("broker gone") })
	c.AddErr("redis", func() error { calls++; return nil })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker gone")
	assert.Equal(t, 2, calls)
}

func TestClose_RunsOnce(t *testing.T) {
	c := New(0)
	calls := 0
	c.AddErr("x", func() error { calls++; return nil })

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestClose_ForcesRemainingAfterTimeout(t *testing.T) {
	c := New(100 * time.Millisecond)
	var (
		mu     sync.Mutex
		forced bool
	)

	c.Add("first", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		forced = true
		return nil
	})
	var slowCalls atomic.Int32
	c.AddErr("slow", func() error {
		slowCalls.Add(1)
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted, 0/2 closed in order")
	assert.Contains(t, err.Error(), "slow: context deadline exceeded")
	assert.Equal(t, int32(1), slowCalls.Load(), "an interrupted close must not run twice")

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, forced)
}
