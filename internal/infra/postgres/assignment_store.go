package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizgen/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

const assignmentColumns = `id, quiz_id, assigned_by, assigned_to, assigned_at, status, completed_at, score, total_questions, time_taken, expires_at`

func (s *Store) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_assignments (id, quiz_id, assigned_by, assigned_to, assigned_at, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuizID, a.AssignedBy, a.AssignedTo, a.AssignedAt, string(a.Status), a.ExpiresAt)
	if isUniqueViolation(err) {
		return domain.Assignment{}, domain.ErrDuplicateAssignment
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM quiz_assignments WHERE id=$1`, assignmentID)
	return scanSingleAssignment(row)
}

func (s *Store) FindAssignment(ctx context.Context, quizID, userID string) (domain.Assignment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM quiz_assignments WHERE quiz_id=$1 AND assigned_to=$2`,
		quizID, userID)
	return scanSingleAssignment(row)
}

func (s *Store) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM quiz_assignments WHERE assigned_to=$1 ORDER BY assigned_at DESC, id`, userID)
}

func (s *Store) ListAssignmentsByAssignor(ctx context.Context, assignorID string) ([]domain.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM quiz_assignments WHERE assigned_by=$1 ORDER BY assigned_at DESC, id`, assignorID)
}

// CompleteAssignment is a single conditional UPDATE: only a pending row whose
// deadline lies after the completion time is written. When nothing matched
// the row is re-read to report why.
func (s *Store) CompleteAssignment(ctx context.Context, assignmentID string, result domain.AssignmentResult) (domain.Assignment, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE quiz_assignments
		    SET status='completed', completed_at=$2, score=$3, total_questions=$4, time_taken=$5
		  WHERE id=$1 AND status='pending' AND (expires_at IS NULL OR expires_at > $2)
		  RETURNING `+assignmentColumns,
		assignmentID, result.CompletedAt, result.Score, result.TotalQuestions, result.TimeTaken)
	a, err := scanAssignment(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, fmt.Errorf("complete assignment: %w", err)
	}

	current, err := s.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if current.Status != domain.StatusPending {
		return domain.Assignment{}, domain.ErrAssignmentNotPending
	}
	return domain.Assignment{}, domain.ErrAssignmentExpired
}

func (s *Store) ExpireAssignments(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quiz_assignments SET status='expired'
		  WHERE status='pending' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire assignments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteAssignmentsForQuiz(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_assignments WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]domain.Assignment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanSingleAssignment(row pgx.Row) (domain.Assignment, error) {
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	return a, nil
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		status string
	)
	err := row.Scan(&a.ID, &a.QuizID, &a.AssignedBy, &a.AssignedTo, &a.AssignedAt, &status,
		&a.CompletedAt, &a.Score, &a.TotalQuestions, &a.TimeTaken, &a.ExpiresAt)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Status = domain.AssignmentStatus(status)
	return a, nil
}
