package app

import (
	"context"
	"time"

	"quizgen/internal/domain"
)

// QuizStore persists quiz definitions and their embedded attempt log.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// UpdateQuiz replaces the creator-editable fields; attempts and derived
	// aggregates are left untouched.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	ListPublicQuizzes(ctx context.Context) ([]domain.Quiz, error)
	ListQuizzesByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error)
	ListQuizzesByIDs(ctx context.Context, quizIDs []string) ([]domain.Quiz, error)
	// AppendAttempt adds to the attempt log and stores AverageScore and
	// TotalAttempts recomputed over the whole log.
	AppendAttempt(ctx context.Context, quizID string, attempt domain.Attempt) (domain.Quiz, error)
}

// AssignmentStore persists the assignment ledger. Implementations enforce
// uniqueness of (quiz, assignedTo).
type AssignmentStore interface {
	// CreateAssignment returns domain.ErrDuplicateAssignment on a unique-key clash.
	CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error)
	FindAssignment(ctx context.Context, quizID, userID string) (domain.Assignment, error)
	ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.Assignment, error)
	ListAssignmentsByAssignor(ctx context.Context, assignorID string) ([]domain.Assignment, error)
	// CompleteAssignment is a compare-and-set: it succeeds only while the
	// stored status is pending and the deadline (if any) is after
	// result.CompletedAt. Otherwise it returns ErrAssignmentNotPending or
	// ErrAssignmentExpired and leaves the record unchanged.
	CompleteAssignment(ctx context.Context, assignmentID string, result domain.AssignmentResult) (domain.Assignment, error)
	// ExpireAssignments persists expired on pending records past their deadline.
	ExpireAssignments(ctx context.Context, now time.Time) (int, error)
	DeleteAssignmentsForQuiz(ctx context.Context, quizID string) error
}

// UserStore reads users and maintains the fields this service derives.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
	AddCreatedQuiz(ctx context.Context, userID, quizID string) error
	RemoveCreatedQuiz(ctx context.Context, userID, quizID string) error
	AppendQuizTaken(ctx context.Context, userID string, summary domain.AttemptSummary) error
}

// Stores groups the three collections.
type Stores struct {
	Quizzes     QuizStore
	Assignments AssignmentStore
	Users       UserStore
}

// QuizRef identifies a quiz in notifications.
type QuizRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AssignmentNotice tells an assignee about a new assignment.
type AssignmentNotice struct {
	AssignmentID string      `json:"assignmentId"`
	Quiz         QuizRef     `json:"quiz"`
	Assignee     domain.User `json:"assignee"`
	Assignor     domain.User `json:"assignor"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
}

// AssignmentSummaryNotice tells an assignor who received a quiz.
type AssignmentSummaryNotice struct {
	Quiz      QuizRef       `json:"quiz"`
	Assignor  domain.User   `json:"assignor"`
	Assignees []domain.User `json:"assignees"`
}

// CompletionNotice tells an assignor that an assignment was completed.
type CompletionNotice struct {
	AssignmentID   string      `json:"assignmentId"`
	Quiz           QuizRef     `json:"quiz"`
	Assignee       domain.User `json:"assignee"`
	Assignor       domain.User `json:"assignor"`
	Score          int         `json:"score"`
	TotalQuestions int         `json:"totalQuestions"`
	Percentage     int         `json:"percentage"`
	TimeTaken      int         `json:"timeTaken"`
}

// Notifier delivers ledger notifications. Delivery is fire-and-forget:
// errors are logged by the caller and never undo a ledger transition.
type Notifier interface {
	QuizAssigned(ctx context.Context, n AssignmentNotice) error
	AssignmentsSummary(ctx context.Context, n AssignmentSummaryNotice) error
	AssignmentCompleted(ctx context.Context, n CompletionNotice) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) QuizAssigned(context.Context, AssignmentNotice) error            { return nil }
func (NopNotifier) AssignmentsSummary(context.Context, AssignmentSummaryNotice) error { return nil }
func (NopNotifier) AssignmentCompleted(context.Context, CompletionNotice) error      { return nil }
