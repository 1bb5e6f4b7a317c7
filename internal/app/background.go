package app

import (
	"context"
	"sync"
	"time"
)

// background runs fire-and-forget side effects outside the request's
// cancellation, bounded by a timeout, and lets shutdown wait for them.
type background struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func (b *background) Go(ctx context.Context, fn func(ctx context.Context)) {
	timeout := b.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (b *background) Wait() {
	b.wg.Wait()
}
