package app

import (
	"context"
	"sync"

	"quizgen/internal/domain"
)

// Feed fans out fresh leaderboard snapshots to live subscribers.
type Feed struct {
	compute func(ctx context.Context) (domain.Leaderboard, error)

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewFeed builds a feed around a leaderboard computation.
func NewFeed(compute func(ctx context.Context) (domain.Leaderboard, error)) *Feed {
	return &Feed{
		compute:     compute,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel primed with the current leaderboard.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := f.compute(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// Subscribers reports the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Publish recomputes the leaderboard and broadcasts it. It is a no-op when
// nobody is listening.
func (f *Feed) Publish(ctx context.Context) error {
	if f.Subscribers() == 0 {
		return nil
	}
	lb, err := f.compute(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// slow reader: replace its oldest snapshot with the newest
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return nil
}
