package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quizgen/internal/domain"
)

// QuizService contains the quiz catalog use cases and direct submissions.
type QuizService struct {
	*core
	ledger *AssignmentService
}

// QuizView is a quiz (usually redacted) with its creator resolved.
type QuizView struct {
	domain.Quiz
	Creator *UserRef `json:"creator"`
}

// CreateQuiz validates and stores a new quiz owned by creatorID.
func (s *QuizService) CreateQuiz(ctx context.Context, creatorID string, in domain.QuizInput) (domain.Quiz, error) {
	in = in.Normalize()
	if err := domain.ValidateQuiz(in); err != nil {
		return domain.Quiz{}, err
	}
	if _, err := s.stores.Users.GetUser(ctx, creatorID); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{CreatorID: creatorID, CreatedAt: now, UpdatedAt: now}
	in.ApplyTo(&quiz)

	created, err := s.stores.Quizzes.CreateQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	if err := s.stores.Users.AddCreatedQuiz(ctx, creatorID, created.ID); err != nil {
		return domain.Quiz{}, fmt.Errorf("link quiz to creator: %w", err)
	}
	s.log.InfoContext(ctx, "quiz created", "quiz_id", created.ID, "creator", creatorID)
	return created, nil
}

// UpdateQuiz replaces the editable fields of a quiz owned by userID.
func (s *QuizService) UpdateQuiz(ctx context.Context, userID, quizID string, in domain.QuizInput) (domain.Quiz, error) {
	in = in.Normalize()
	if err := domain.ValidateQuiz(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.stores.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != userID {
		return domain.Quiz{}, domain.ErrNotQuizCreator
	}
	in.ApplyTo(&quiz)
	quiz.UpdatedAt = s.now()
	return s.stores.Quizzes.UpdateQuiz(ctx, quiz)
}

// DeleteQuiz removes a quiz owned by userID together with its assignments.
func (s *QuizService) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	quiz, err := s.stores.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.CreatorID != userID {
		return domain.ErrNotQuizCreator
	}
	if err := s.stores.Quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	if err := s.stores.Assignments.DeleteAssignmentsForQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if err := s.stores.Users.RemoveCreatedQuiz(ctx, userID, quizID); err != nil {
		return fmt.Errorf("unlink quiz from creator: %w", err)
	}
	s.log.InfoContext(ctx, "quiz deleted", "quiz_id", quizID, "creator", userID)
	return nil
}

// GetQuizForTaking returns a quiz without correct-answer data. Private
// quizzes are visible only to the creator and to assignees.
func (s *QuizService) GetQuizForTaking(ctx context.Context, viewerID, quizID string) (QuizView, error) {
	quiz, err := s.visibleQuiz(ctx, viewerID, quizID)
	if err != nil {
		return QuizView{}, err
	}
	refs, err := s.userRefs(ctx, quiz.CreatorID)
	if err != nil {
		return QuizView{}, err
	}
	return QuizView{Quiz: quiz.Redacted(), Creator: refs[quiz.CreatorID]}, nil
}

// ListPublicQuizzes returns public quizzes newest first, redacted.
func (s *QuizService) ListPublicQuizzes(ctx context.Context) ([]QuizView, error) {
	quizzes, err := s.stores.Quizzes.ListPublicQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(quizzes)
	creators := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		creators = append(creators, q.CreatorID)
	}
	refs, err := s.userRefs(ctx, creators...)
	if err != nil {
		return nil, err
	}
	views := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, QuizView{Quiz: q.Redacted(), Creator: refs[q.CreatorID]})
	}
	return views, nil
}

// ListCreatedQuizzes returns the caller's own quizzes, newest first.
func (s *QuizService) ListCreatedQuizzes(ctx context.Context, userID string) ([]domain.Quiz, error) {
	quizzes, err := s.stores.Quizzes.ListQuizzesByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(quizzes)
	return quizzes, nil
}

// SubmitQuiz grades answers for quizID. When the caller holds an assignment
// for the quiz the submission completes it (at most once); otherwise it is
// recorded as a direct attempt.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, quizID string, sub domain.Submission) (domain.SubmissionResult, error) {
	if err := domain.ValidateSubmission(sub); err != nil {
		return domain.SubmissionResult{}, err
	}

	assignment, err := s.stores.Assignments.FindAssignment(ctx, quizID, userID)
	switch {
	case err == nil:
		return s.ledger.complete(ctx, assignment, sub)
	case !errors.Is(err, domain.ErrAssignmentNotFound):
		return domain.SubmissionResult{}, err
	}

	quiz, err := s.visibleQuiz(ctx, userID, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	graded := Grade(quiz, sub.Answers)
	if err := s.recordAttempt(ctx, quiz.ID, userID, graded, s.now()); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("record attempt: %w", err)
	}
	s.refreshFeed(ctx)

	return domain.SubmissionResult{
		Score:          graded.Score,
		TotalQuestions: graded.TotalQuestions,
		Percentage:     graded.Percentage,
		TimeTaken:      sub.TimeTaken,
		Breakdown:      graded.Breakdown,
	}, nil
}

func (s *QuizService) visibleQuiz(ctx context.Context, viewerID, quizID string) (domain.Quiz, error) {
	quiz, err := s.stores.Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.IsPublic || (viewerID != "" && quiz.CreatorID == viewerID) {
		return quiz, nil
	}
	if viewerID == "" {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if _, err := s.stores.Assignments.FindAssignment(ctx, quizID, viewerID); err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func sortNewestFirst(quizzes []domain.Quiz) {
	sort.SliceStable(quizzes, func(i, j int) bool {
		if !quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
}
