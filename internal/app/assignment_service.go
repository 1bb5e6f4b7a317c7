package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"quizgen/internal/domain"
)

// AssignmentService is the assignment ledger: pending -> completed, or
// pending -> expired once the deadline passes.
type AssignmentService struct {
	*core
	defaultExpiry time.Duration
}

// AssignRequest lists the users to assign a quiz to.
type AssignRequest struct {
	AssignedTo []string   `json:"assignedTo"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// AssignedUser is a successfully created assignment.
type AssignedUser struct {
	UserID       string `json:"userId"`
	AssignmentID string `json:"assignmentId"`
}

// AssignFailure explains why one target user was not assigned.
type AssignFailure struct {
	UserID  string      `json:"userId"`
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`

	err error
}

// AssignOutcome reports per-user results of an Assign call.
type AssignOutcome struct {
	Assigned []AssignedUser  `json:"assigned"`
	Failures []AssignFailure `json:"failures"`
}

// AssignmentView is an assignment as observed now, with its quiz and
// participants resolved.
type AssignmentView struct {
	domain.Assignment
	Quiz       *QuizSummary `json:"quiz"`
	AssignedBy *UserRef     `json:"assignedBy,omitempty"`
	AssignedTo *UserRef     `json:"assignedTo,omitempty"`
	Percentage *int         `json:"percentage,omitempty"`
}

// QuizSummary is the quiz metadata shown next to an assignment.
type QuizSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	TimeLimit   *int   `json:"timeLimit"`
}

// AssignedQuiz is a redacted quiz handed to an assignee about to take it.
type AssignedQuiz struct {
	Quiz       QuizView          `json:"quiz"`
	Assignment domain.Assignment `json:"assignment"`
}

// Assign creates one pending assignment per target user. Targets that fail
// are reported in the outcome; the error is non-nil only when the request
// itself is invalid or nothing could be assigned.
func (s *AssignmentService) Assign(ctx context.Context, assignorID, quizID string, req AssignRequest) (AssignOutcome, error) {
	now := s.now()
	targets := uniqueIDs(req.AssignedTo)
	if len(targets) == 0 {
		return AssignOutcome{}, domain.Invalid("assignedTo must list at least one user")
	}
	expiresAt, err := s.deadline(req.ExpiresAt, now)
	if err != nil {
		return AssignOutcome{}, err
	}

	quiz, err := s.stores.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return AssignOutcome{}, err
	}
	if quiz.CreatorID != assignorID {
		return AssignOutcome{}, domain.ErrNotQuizCreator
	}
	assignor, err := s.stores.Users.GetUser(ctx, assignorID)
	if err != nil {
		return AssignOutcome{}, err
	}

	var (
		outcome   AssignOutcome
		assignees []domain.User
	)
	for _, userID := range targets {
		created, assignee, err := s.assignOne(ctx, quiz, assignorID, userID, now, expiresAt)
		if err != nil {
			outcome.Failures = append(outcome.Failures, AssignFailure{
				UserID:  userID,
				Kind:    domain.KindOf(err),
				Message: failureMessage(err),
				err:     err,
			})
			continue
		}
		outcome.Assigned = append(outcome.Assigned, AssignedUser{UserID: userID, AssignmentID: created.ID})
		assignees = append(assignees, assignee)
		s.notifyAssigned(ctx, created, quiz, assignee, assignor)
	}

	if len(assignees) > 0 {
		s.notifySummary(ctx, quiz, assignor, assignees)
	}
	s.log.InfoContext(ctx, "quiz assigned", "quiz_id", quizID, "assigned", len(outcome.Assigned), "failed", len(outcome.Failures))

	if len(outcome.Assigned) == 0 && len(outcome.Failures) > 0 {
		return outcome, outcome.Failures[0].err
	}
	return outcome, nil
}

func (s *AssignmentService) assignOne(ctx context.Context, quiz domain.Quiz, assignorID, userID string, now time.Time, expiresAt *time.Time) (domain.Assignment, domain.User, error) {
	user, err := s.stores.Users.GetUser(ctx, userID)
	if err != nil {
		return domain.Assignment{}, domain.User{}, err
	}
	if !user.IsActive {
		return domain.Assignment{}, domain.User{}, domain.ErrUserNotFound
	}
	created, err := s.stores.Assignments.CreateAssignment(ctx, domain.Assignment{
		QuizID:     quiz.ID,
		AssignedBy: assignorID,
		AssignedTo: userID,
		AssignedAt: now,
		Status:     domain.StatusPending,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return domain.Assignment{}, domain.User{}, err
	}
	return created, user, nil
}

func (s *AssignmentService) deadline(requested *time.Time, now time.Time) (*time.Time, error) {
	if requested != nil {
		if !requested.After(now) {
			return nil, domain.Invalid("expiresAt must be in the future")
		}
		t := requested.UTC()
		return &t, nil
	}
	if s.defaultExpiry > 0 {
		t := now.Add(s.defaultExpiry).UTC()
		return &t, nil
	}
	return nil, nil
}

// SubmitAssignment grades answers for an assignment held by userID.
func (s *AssignmentService) SubmitAssignment(ctx context.Context, userID, assignmentID string, sub domain.Submission) (domain.SubmissionResult, error) {
	if err := domain.ValidateSubmission(sub); err != nil {
		return domain.SubmissionResult{}, err
	}
	a, err := s.stores.Assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if a.AssignedTo != userID {
		return domain.SubmissionResult{}, domain.ErrAssignmentNotFound
	}
	return s.complete(ctx, a, sub)
}

// complete moves a pending assignment to completed. The store's
// compare-and-set decides the winner between concurrent submissions; the
// loser gets ErrAssignmentNotPending and writes nothing.
func (s *AssignmentService) complete(ctx context.Context, a domain.Assignment, sub domain.Submission) (domain.SubmissionResult, error) {
	now := s.now()
	switch a.EffectiveStatus(now) {
	case domain.StatusCompleted:
		return domain.SubmissionResult{}, domain.ErrAssignmentNotPending
	case domain.StatusExpired:
		return domain.SubmissionResult{}, domain.ErrAssignmentExpired
	}

	quiz, err := s.stores.Quizzes.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	graded := Grade(quiz, sub.Answers)

	completed, err := s.stores.Assignments.CompleteAssignment(ctx, a.ID, domain.AssignmentResult{
		Score:          graded.Score,
		TotalQuestions: graded.TotalQuestions,
		TimeTaken:      sub.TimeTaken,
		CompletedAt:    now,
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	s.log.InfoContext(ctx, "assignment completed",
		"assignment_id", a.ID, "quiz_id", a.QuizID, "user_id", a.AssignedTo,
		"score", graded.Score, "total", graded.TotalQuestions)

	// The ledger already holds the result; a failed log write must not turn
	// a scored submission into an error.
	if err := s.recordAttempt(ctx, quiz.ID, a.AssignedTo, graded, now); err != nil {
		s.log.ErrorContext(ctx, "record attempt for completed assignment", "assignment_id", a.ID, "error", err)
	}
	s.notifyCompleted(ctx, completed, quiz, graded)
	s.refreshFeed(ctx)

	return domain.SubmissionResult{
		Score:          graded.Score,
		TotalQuestions: graded.TotalQuestions,
		Percentage:     graded.Percentage,
		TimeTaken:      sub.TimeTaken,
		AssignmentID:   a.ID,
		Breakdown:      graded.Breakdown,
	}, nil
}

// GetAssignment returns one assignment as observed now, visible to its
// assignee and assignor only.
func (s *AssignmentService) GetAssignment(ctx context.Context, userID, assignmentID string) (domain.Assignment, error) {
	a, err := s.stores.Assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if a.AssignedTo != userID && a.AssignedBy != userID {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a.Observed(s.now()), nil
}

// GetAssignedQuizForTaking returns the redacted quiz behind a pending
// assignment of userID.
func (s *AssignmentService) GetAssignedQuizForTaking(ctx context.Context, userID, quizID string) (AssignedQuiz, error) {
	a, err := s.stores.Assignments.FindAssignment(ctx, quizID, userID)
	if err != nil {
		return AssignedQuiz{}, err
	}
	a = a.Observed(s.now())
	switch a.Status {
	case domain.StatusCompleted:
		return AssignedQuiz{}, domain.ErrAssignmentNotPending
	case domain.StatusExpired:
		return AssignedQuiz{}, domain.ErrAssignmentExpired
	}
	quiz, err := s.stores.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return AssignedQuiz{}, err
	}
	refs, err := s.userRefs(ctx, quiz.CreatorID)
	if err != nil {
		return AssignedQuiz{}, err
	}
	return AssignedQuiz{
		Quiz:       QuizView{Quiz: quiz.Redacted(), Creator: refs[quiz.CreatorID]},
		Assignment: a,
	}, nil
}

// ListAssigned returns the assignments addressed to userID, newest first.
func (s *AssignmentService) ListAssigned(ctx context.Context, userID string) ([]AssignmentView, error) {
	list, err := s.stores.Assignments.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list, false)
}

// ListAssignmentResults returns the assignments userID handed out, newest first.
func (s *AssignmentService) ListAssignmentResults(ctx context.Context, assignorID string) ([]AssignmentView, error) {
	list, err := s.stores.Assignments.ListAssignmentsByAssignor(ctx, assignorID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list, true)
}

// ExpireOverdue persists the expired status on overdue pending assignments.
func (s *AssignmentService) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := s.stores.Assignments.ExpireAssignments(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expire assignments: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired overdue assignments", "count", n)
	}
	return n, nil
}

func (s *AssignmentService) views(ctx context.Context, list []domain.Assignment, withAssignee bool) ([]AssignmentView, error) {
	now := s.now()
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].AssignedAt.Equal(list[j].AssignedAt) {
			return list[i].AssignedAt.After(list[j].AssignedAt)
		}
		return list[i].ID < list[j].ID
	})

	quizIDs := make([]string, 0, len(list))
	userIDs := make([]string, 0, len(list)*2)
	for _, a := range list {
		quizIDs = append(quizIDs, a.QuizID)
		userIDs = append(userIDs, a.AssignedBy)
		if withAssignee {
			userIDs = append(userIDs, a.AssignedTo)
		}
	}
	quizzes, err := s.stores.Quizzes.ListQuizzesByIDs(ctx, uniqueIDs(quizIDs))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	refs, err := s.userRefs(ctx, userIDs...)
	if err != nil {
		return nil, err
	}

	views := make([]AssignmentView, 0, len(list))
	for _, a := range list {
		q, ok := byID[a.QuizID]
		if !ok {
			continue
		}
		v := AssignmentView{
			Assignment: a.Observed(now),
			Quiz: &QuizSummary{
				ID:          q.ID,
				Title:       q.Title,
				Description: q.Description,
				Category:    q.Category,
				Difficulty:  q.Difficulty,
				TimeLimit:   q.TimeLimit,
			},
			AssignedBy: refs[a.AssignedBy],
		}
		if withAssignee {
			v.AssignedTo = refs[a.AssignedTo]
		}
		if a.Score != nil && a.TotalQuestions != nil {
			pct := Percentage(*a.Score, *a.TotalQuestions)
			v.Percentage = &pct
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *AssignmentService) notifyAssigned(ctx context.Context, a domain.Assignment, quiz domain.Quiz, assignee, assignor domain.User) {
	notice := AssignmentNotice{
		AssignmentID: a.ID,
		Quiz:         QuizRef{ID: quiz.ID, Title: quiz.Title},
		Assignee:     assignee,
		Assignor:     assignor,
		ExpiresAt:    a.ExpiresAt,
	}
	s.bg.Go(ctx, func(ctx context.Context) {
		if err := s.notifier.QuizAssigned(ctx, notice); err != nil {
			s.log.WarnContext(ctx, "assignment notification failed", "assignment_id", a.ID, "error", err)
		}
	})
}

func (s *AssignmentService) notifySummary(ctx context.Context, quiz domain.Quiz, assignor domain.User, assignees []domain.User) {
	notice := AssignmentSummaryNotice{
		Quiz:      QuizRef{ID: quiz.ID, Title: quiz.Title},
		Assignor:  assignor,
		Assignees: assignees,
	}
	s.bg.Go(ctx, func(ctx context.Context) {
		if err := s.notifier.AssignmentsSummary(ctx, notice); err != nil {
			s.log.WarnContext(ctx, "assignment summary notification failed", "quiz_id", quiz.ID, "error", err)
		}
	})
}

func (s *AssignmentService) notifyCompleted(ctx context.Context, a domain.Assignment, quiz domain.Quiz, graded domain.GradingResult) {
	s.bg.Go(ctx, func(ctx context.Context) {
		assignee, err := s.stores.Users.GetUser(ctx, a.AssignedTo)
		if err != nil {
			s.log.WarnContext(ctx, "completion notification skipped", "assignment_id", a.ID, "error", err)
			return
		}
		assignor, err := s.stores.Users.GetUser(ctx, a.AssignedBy)
		if err != nil {
			s.log.WarnContext(ctx, "completion notification skipped", "assignment_id", a.ID, "error", err)
			return
		}
		notice := CompletionNotice{
			AssignmentID:   a.ID,
			Quiz:           QuizRef{ID: quiz.ID, Title: quiz.Title},
			Assignee:       assignee,
			Assignor:       assignor,
			Score:          graded.Score,
			TotalQuestions: graded.TotalQuestions,
			Percentage:     graded.Percentage,
			TimeTaken:      a.TimeTaken,
		}
		if err := s.notifier.AssignmentCompleted(ctx, notice); err != nil {
			s.log.WarnContext(ctx, "completion notification failed", "assignment_id", a.ID, "error", err)
		}
	})
}

func failureMessage(err error) string {
	if msg := domain.PublicMessage(err); msg != "" {
		return msg
	}
	return "could not assign quiz"
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
