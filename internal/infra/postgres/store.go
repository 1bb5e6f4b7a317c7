package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizgen/internal/app"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store keeps quizzes and users as JSONB documents and assignments in a
// relational table so the completion guard and pair uniqueness are enforced
// by Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ app.QuizStore       = (*Store)(nil)
	_ app.AssignmentStore = (*Store)(nil)
	_ app.UserStore       = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Stores exposes s through the app.Stores bundle.
func (s *Store) Stores() app.Stores {
	return app.Stores{Quizzes: s, Assignments: s, Users: s}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// lockDocument reads a JSONB document with FOR UPDATE inside tx.
func lockDocument(ctx context.Context, tx pgx.Tx, table, id string, dst interface{}) error {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT data FROM `+table+` WHERE id=$1 FOR UPDATE`, id).Scan(&raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return nil
}
