package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizgen/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM users WHERE id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		user.ID, data)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) AddCreatedQuiz(ctx context.Context, userID, quizID string) error {
	return s.mutateUser(ctx, userID, func(u *domain.User) {
		for _, id := range u.QuizzesCreated {
			if id == quizID {
				return
			}
		}
		u.QuizzesCreated = append(u.QuizzesCreated, quizID)
	})
}

func (s *Store) RemoveCreatedQuiz(ctx context.Context, userID, quizID string) error {
	return s.mutateUser(ctx, userID, func(u *domain.User) {
		kept := make([]string, 0, len(u.QuizzesCreated))
		for _, id := range u.QuizzesCreated {
			if id != quizID {
				kept = append(kept, id)
			}
		}
		u.QuizzesCreated = kept
	})
}

func (s *Store) AppendQuizTaken(ctx context.Context, userID string, summary domain.AttemptSummary) error {
	return s.mutateUser(ctx, userID, func(u *domain.User) {
		u.QuizzesTaken = append(u.QuizzesTaken, summary)
	})
}

func (s *Store) mutateUser(ctx context.Context, userID string, fn func(*domain.User)) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var user domain.User
		if err := lockDocument(ctx, tx, "users", userID, &user); err != nil {
			return err
		}
		fn(&user)
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE users SET data=$2 WHERE id=$1`, userID, data)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
