package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizCache caches whole quiz documents in Redis and falls back to the
// wrapped store on a miss. Quizzes are stored as JSON under quiz:{quizID}.
// A Redis outage degrades to store reads; it never fails a request.
type QuizCache struct {
	app.QuizStore

	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, store app.QuizStore, ttl time.Duration, log *slog.Logger) *QuizCache {
	if log == nil {
		log = slog.Default()
	}
	return &QuizCache{
		QuizStore: store,
		client:    client,
		ttl:       ttl,
		log:       log,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.read(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.read(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := c.QuizStore.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.write(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	defer c.Invalidate(ctx, quiz.ID)
	return c.QuizStore.UpdateQuiz(ctx, quiz)
}

func (c *QuizCache) DeleteQuiz(ctx context.Context, quizID string) error {
	defer c.Invalidate(ctx, quizID)
	return c.QuizStore.DeleteQuiz(ctx, quizID)
}

func (c *QuizCache) AppendAttempt(ctx context.Context, quizID string, attempt domain.Attempt) (domain.Quiz, error) {
	defer c.Invalidate(ctx, quizID)
	return c.QuizStore.AppendAttempt(ctx, quizID, attempt)
}

// Invalidate removes a cached quiz.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) {
	if err := c.client.Del(ctx, c.key(quizID)).Err(); err != nil {
		c.log.WarnContext(ctx, "quiz cache invalidate failed", "quiz_id", quizID, "error", err)
	}
}

func (c *QuizCache) read(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "quiz cache read failed", "quiz_id", quizID, "error", err)
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCache) write(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(quiz.ID), raw, c.ttlWithJitter()).Err(); err != nil {
		c.log.WarnContext(ctx, "quiz cache write failed", "quiz_id", quiz.ID, "error", err)
	}
}

func (c *QuizCache) key(quizID string) string {
	return "quiz:" + quizID
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
