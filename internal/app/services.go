package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"quizgen/internal/domain"
)

// Options configures the service layer.
type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
	// DefaultExpiry is applied to assignments created without an explicit
	// deadline. Zero means no deadline.
	DefaultExpiry time.Duration
	// SideEffectTimeout bounds notification and feed work.
	SideEffectTimeout time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Services bundles the use cases that share stores and side-effect plumbing.
type Services struct {
	Quizzes     *QuizService
	Assignments *AssignmentService
	Stats       *StatsService
	Feed        *Feed

	core *core
}

type core struct {
	stores   Stores
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	bg       *background
	feed     *Feed
}

// NewServices wires the catalog, ledger and statistics use cases.
func NewServices(stores Stores, opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &core{
		stores:   stores,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
		bg:       &background{timeout: opts.SideEffectTimeout},
	}
	stats := &StatsService{core: c}
	c.feed = NewFeed(func(ctx context.Context) (domain.Leaderboard, error) {
		return stats.Leaderboard(ctx, domain.LeaderboardQuery{})
	})
	ledger := &AssignmentService{core: c, defaultExpiry: opts.DefaultExpiry}
	return &Services{
		Quizzes:     &QuizService{core: c, ledger: ledger},
		Assignments: ledger,
		Stats:       stats,
		Feed:        c.feed,
		core:        c,
	}
}

// Drain blocks until pending notifications and feed refreshes finish.
func (s *Services) Drain() {
	s.core.bg.Wait()
}

// UserRef is the public projection of a user.
type UserRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func refOf(u domain.User) *UserRef {
	return &UserRef{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// userRefs resolves ids to public refs; unknown users are skipped.
func (c *core) userRefs(ctx context.Context, ids ...string) (map[string]*UserRef, error) {
	out := make(map[string]*UserRef, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen || id == "" {
			continue
		}
		u, err := c.stores.Users.GetUser(ctx, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = refOf(u)
	}
	return out, nil
}

// recordAttempt appends the graded attempt to the quiz log and the user's
// history. It runs after the ledger gate so a rejected submission never
// writes an attempt.
func (c *core) recordAttempt(ctx context.Context, quizID, userID string, graded domain.GradingResult, at time.Time) error {
	attempt := domain.Attempt{
		UserID:         userID,
		Score:          graded.Score,
		TotalQuestions: graded.TotalQuestions,
		Answers:        graded.Breakdown,
		CompletedAt:    at,
	}
	if _, err := c.stores.Quizzes.AppendAttempt(ctx, quizID, attempt); err != nil {
		return err
	}
	return c.stores.Users.AppendQuizTaken(ctx, userID, domain.AttemptSummary{
		QuizID:         quizID,
		Score:          graded.Score,
		TotalQuestions: graded.TotalQuestions,
		CompletedAt:    at,
	})
}

func (c *core) refreshFeed(ctx context.Context) {
	if c.feed.Subscribers() == 0 {
		return
	}
	c.bg.Go(ctx, func(ctx context.Context) {
		if err := c.feed.Publish(ctx); err != nil {
			c.log.WarnContext(ctx, "leaderboard feed refresh failed", "error", err)
		}
	})
}
