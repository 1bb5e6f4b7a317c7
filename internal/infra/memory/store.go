package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/google/uuid"
)

// Store is an in-process implementation of the quiz, assignment and user
// stores. A single mutex serialises writes, which makes the assignment
// compare-and-set trivially atomic.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	assignments map[string]domain.Assignment
	byPair      map[pairKey]string
	users       map[string]domain.User
}

type pairKey struct {
	quizID string
	userID string
}

var (
	_ app.QuizStore       = (*Store)(nil)
	_ app.AssignmentStore = (*Store)(nil)
	_ app.UserStore       = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[string]domain.Quiz),
		assignments: make(map[string]domain.Assignment),
		byPair:      make(map[pairKey]string),
		users:       make(map[string]domain.User),
	}
}

// Stores exposes s through the app.Stores bundle.
func (s *Store) Stores() app.Stores {
	return app.Stores{Quizzes: s, Assignments: s, Users: s}
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	quiz = cloneQuiz(quiz)
	s.quizzes[quiz.ID] = quiz
	return cloneQuiz(quiz), nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Attempts = stored.Attempts
	quiz.AverageScore = stored.AverageScore
	quiz.TotalAttempts = stored.TotalAttempts
	quiz.CreatorID = stored.CreatorID
	quiz.CreatedAt = stored.CreatedAt
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return cloneQuiz(quiz), nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) ListPublicQuizzes(_ context.Context) ([]domain.Quiz, error) {
	return s.filterQuizzes(func(q domain.Quiz) bool { return q.IsPublic }), nil
}

func (s *Store) ListQuizzesByCreator(_ context.Context, creatorID string) ([]domain.Quiz, error) {
	return s.filterQuizzes(func(q domain.Quiz) bool { return q.CreatorID == creatorID }), nil
}

func (s *Store) ListQuizzesByIDs(_ context.Context, quizIDs []string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(quizIDs))
	for _, id := range quizIDs {
		if q, ok := s.quizzes[id]; ok {
			out = append(out, cloneQuiz(q))
		}
	}
	return out, nil
}

func (s *Store) AppendAttempt(_ context.Context, quizID string, attempt domain.Attempt) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz = cloneQuiz(quiz)
	quiz.Attempts = append(quiz.Attempts, cloneAttempt(attempt))
	app.RecomputeAggregates(&quiz)
	s.quizzes[quizID] = quiz
	return cloneQuiz(quiz), nil
}

func (s *Store) filterQuizzes(keep func(domain.Quiz) bool) []domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if keep(q) {
			out = append(out, cloneQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateAssignment(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{quizID: a.QuizID, userID: a.AssignedTo}
	if _, exists := s.byPair[key]; exists {
		return domain.Assignment{}, domain.ErrDuplicateAssignment
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	s.assignments[a.ID] = cloneAssignment(a)
	s.byPair[key] = a.ID
	return cloneAssignment(a), nil
}

func (s *Store) GetAssignment(_ context.Context, assignmentID string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return cloneAssignment(a), nil
}

func (s *Store) FindAssignment(_ context.Context, quizID, userID string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{quizID: quizID, userID: userID}]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return cloneAssignment(s.assignments[id]), nil
}

func (s *Store) ListAssignmentsForUser(_ context.Context, userID string) ([]domain.Assignment, error) {
	return s.filterAssignments(func(a domain.Assignment) bool { return a.AssignedTo == userID }), nil
}

func (s *Store) ListAssignmentsByAssignor(_ context.Context, assignorID string) ([]domain.Assignment, error) {
	return s.filterAssignments(func(a domain.Assignment) bool { return a.AssignedBy == assignorID }), nil
}

func (s *Store) CompleteAssignment(_ context.Context, assignmentID string, result domain.AssignmentResult) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if a.Status != domain.StatusPending {
		return domain.Assignment{}, domain.ErrAssignmentNotPending
	}
	if a.ExpiresAt != nil && !result.CompletedAt.Before(*a.ExpiresAt) {
		return domain.Assignment{}, domain.ErrAssignmentExpired
	}
	score, total, at := result.Score, result.TotalQuestions, result.CompletedAt
	a.Status = domain.StatusCompleted
	a.Score = &score
	a.TotalQuestions = &total
	a.CompletedAt = &at
	a.TimeTaken = result.TimeTaken
	s.assignments[assignmentID] = a
	return cloneAssignment(a), nil
}

func (s *Store) ExpireAssignments(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.assignments {
		if a.Status == domain.StatusPending && a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
			a.Status = domain.StatusExpired
			s.assignments[id] = a
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAssignmentsForQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.assignments {
		if a.QuizID == quizID {
			delete(s.assignments, id)
			delete(s.byPair, pairKey{quizID: a.QuizID, userID: a.AssignedTo})
		}
	}
	return nil
}

func (s *Store) filterAssignments(keep func(domain.Assignment) bool) []domain.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Assignment, 0)
	for _, a := range s.assignments {
		if keep(a) {
			out = append(out, cloneAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) AddCreatedQuiz(_ context.Context, userID, quizID string) error {
	return s.mutateUser(userID, func(u *domain.User) {
		for _, id := range u.QuizzesCreated {
			if id == quizID {
				return
			}
		}
		u.QuizzesCreated = append(u.QuizzesCreated, quizID)
	})
}

func (s *Store) RemoveCreatedQuiz(_ context.Context, userID, quizID string) error {
	return s.mutateUser(userID, func(u *domain.User) {
		kept := u.QuizzesCreated[:0]
		for _, id := range u.QuizzesCreated {
			if id != quizID {
				kept = append(kept, id)
			}
		}
		u.QuizzesCreated = kept
	})
}

func (s *Store) AppendQuizTaken(_ context.Context, userID string, summary domain.AttemptSummary) error {
	return s.mutateUser(userID, func(u *domain.User) {
		u.QuizzesTaken = append(u.QuizzesTaken, summary)
	})
}

func (s *Store) mutateUser(userID string, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u = cloneUser(u)
	fn(&u)
	s.users[userID] = u
	return nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	if q.TimeLimit != nil {
		v := *q.TimeLimit
		out.TimeLimit = &v
	}
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = domain.Question{
			Question: question.Question,
			Options:  append([]domain.Option(nil), question.Options...),
		}
	}
	out.Attempts = make([]domain.Attempt, len(q.Attempts))
	for i, a := range q.Attempts {
		out.Attempts[i] = cloneAttempt(a)
	}
	return out
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	out := a
	out.Answers = append([]domain.AnswerRecord(nil), a.Answers...)
	return out
}

func cloneAssignment(a domain.Assignment) domain.Assignment {
	out := a
	out.CompletedAt = clonePtr(a.CompletedAt)
	out.Score = clonePtr(a.Score)
	out.TotalQuestions = clonePtr(a.TotalQuestions)
	out.ExpiresAt = clonePtr(a.ExpiresAt)
	return out
}

func cloneUser(u domain.User) domain.User {
	out := u
	out.QuizzesCreated = append([]string(nil), u.QuizzesCreated...)
	out.QuizzesTaken = append([]domain.AttemptSummary(nil), u.QuizzesTaken...)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
