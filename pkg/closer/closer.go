package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultForcedTimeout = 2 * time.Second

// Func releases one resource.
type Func func(ctx context.Context) error

type resource struct {
	name string
	fn   Func
}

// Closer releases registered resources in reverse order of registration.
type Closer struct {
	mu            sync.Mutex
	once          sync.Once
	resources     []resource
	forcedTimeout time.Duration
}

// New returns a Closer. forcedTimeout bounds the parallel close of whatever is
// left once the context passed to Close expires.
func New(forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}
	return &Closer{forcedTimeout: forcedTimeout}
}

func (c *Closer) Add(name string, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, resource{name: name, fn: fn})
}

// AddErr registers a close function that takes no context, such as io.Closer.Close.
func (c *Closer) AddErr(name string, fn func() error) {
	c.Add(name, func(context.Context) error { return fn() })
}

// Close runs every registered function once, last registered first.
// If ctx expires midway the remaining functions are run in parallel with their own timeout.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		resources := c.resources
		c.mu.Unlock()

		pending, interrupted, errs := c.closeInOrder(ctx, resources)
		if interrupted {
			errs = append(errs, c.closeForced(pending)...)
			err = fmt.Errorf("shutdown interrupted, %d/%d closed in order: %s",
				len(resources)-len(pending)-1, len(resources), strings.Join(errs, "; "))
			return
		}
		if len(errs) > 0 {
			err = fmt.Errorf("shutdown finished with errors: %s", strings.Join(errs, "; "))
		}
	})
	return err
}

// closeInOrder stops when ctx expires. The close in flight at that moment is
// left to finish on its own and is not run again; the ones not yet started
// are returned.
func (c *Closer) closeInOrder(ctx context.Context, resources []resource) ([]resource, bool, []string) {
	var errs []string
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		done := make(chan error, 1)
		go func() { done <- r.fn(ctx) }()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", r.name, err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Sprintf("%s: %v", r.name, ctx.Err()))
			return resources[:i], true, errs
		}
	}
	return nil, false, errs
}

func (c *Closer) closeForced(resources []resource) []string {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	for _, r := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s (forced): %v", r.name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}
