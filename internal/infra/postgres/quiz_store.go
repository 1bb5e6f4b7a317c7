package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.Attempts == nil {
		quiz.Attempts = []domain.Attempt{}
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, creator_id, is_public, category, created_at, data) VALUES ($1, $2, $3, $4, $5, $6)`,
		quiz.ID, quiz.CreatorID, quiz.IsPublic, quiz.Category, quiz.CreatedAt, data)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var updated domain.Quiz
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var stored domain.Quiz
		if err := lockDocument(ctx, tx, "quizzes", quiz.ID, &stored); err != nil {
			return err
		}
		quiz.Attempts = stored.Attempts
		quiz.AverageScore = stored.AverageScore
		quiz.TotalAttempts = stored.TotalAttempts
		quiz.CreatorID = stored.CreatorID
		quiz.CreatedAt = stored.CreatedAt
		updated = quiz
		return s.writeQuiz(ctx, tx, quiz)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) ListPublicQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT data FROM quizzes WHERE is_public ORDER BY created_at DESC, id`)
}

func (s *Store) ListQuizzesByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT data FROM quizzes WHERE creator_id=$1 ORDER BY created_at DESC, id`, creatorID)
}

func (s *Store) ListQuizzesByIDs(ctx context.Context, quizIDs []string) ([]domain.Quiz, error) {
	if len(quizIDs) == 0 {
		return []domain.Quiz{}, nil
	}
	return s.queryQuizzes(ctx, `SELECT data FROM quizzes WHERE id = ANY($1)`, quizIDs)
}

// AppendAttempt locks the quiz row so concurrent attempts serialise and the
// recomputed aggregates always cover the full log.
func (s *Store) AppendAttempt(ctx context.Context, quizID string, attempt domain.Attempt) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := lockDocument(ctx, tx, "quizzes", quizID, &quiz); err != nil {
			return err
		}
		quiz.Attempts = append(quiz.Attempts, attempt)
		app.RecomputeAggregates(&quiz)
		return s.writeQuiz(ctx, tx, quiz)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("append attempt: %w", err)
	}
	return quiz, nil
}

func (s *Store) writeQuiz(ctx context.Context, tx pgx.Tx, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE quizzes SET is_public=$2, category=$3, data=$4 WHERE id=$1`,
		quiz.ID, quiz.IsPublic, quiz.Category, data)
	return err
}

func (s *Store) queryQuizzes(ctx context.Context, query string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}
