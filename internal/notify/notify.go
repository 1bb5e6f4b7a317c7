// Package notify delivers assignment notifications over logs, RabbitMQ and
// transactional email.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"quizgen/internal/app"
)

// Multi fans a notification out to every notifier and joins their errors.
type Multi []app.Notifier

var _ app.Notifier = Multi(nil)

func (m Multi) QuizAssigned(ctx context.Context, n app.AssignmentNotice) error {
	var errs []error
	for _, notifier := range m {
		errs = append(errs, notifier.QuizAssigned(ctx, n))
	}
	return errors.Join(errs...)
}

func (m Multi) AssignmentsSummary(ctx context.Context, n app.AssignmentSummaryNotice) error {
	var errs []error
	for _, notifier := range m {
		errs = append(errs, notifier.AssignmentsSummary(ctx, n))
	}
	return errors.Join(errs...)
}

func (m Multi) AssignmentCompleted(ctx context.Context, n app.CompletionNotice) error {
	var errs []error
	for _, notifier := range m {
		errs = append(errs, notifier.AssignmentCompleted(ctx, n))
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications as structured log lines.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) QuizAssigned(ctx context.Context, n app.AssignmentNotice) error {
	l.Log.InfoContext(ctx, "quiz assigned",
		"assignment_id", n.AssignmentID,
		"quiz_id", n.Quiz.ID,
		"assignee", n.Assignee.ID,
		"assignor", n.Assignor.ID)
	return nil
}

func (l LogNotifier) AssignmentsSummary(ctx context.Context, n app.AssignmentSummaryNotice) error {
	l.Log.InfoContext(ctx, "assignment summary",
		"quiz_id", n.Quiz.ID,
		"assignor", n.Assignor.ID,
		"assignees", len(n.Assignees))
	return nil
}

func (l LogNotifier) AssignmentCompleted(ctx context.Context, n app.CompletionNotice) error {
	l.Log.InfoContext(ctx, "assignment completed",
		"assignment_id", n.AssignmentID,
		"quiz_id", n.Quiz.ID,
		"assignee", n.Assignee.ID,
		"score", n.Score,
		"total", n.TotalQuestions)
	return nil
}
