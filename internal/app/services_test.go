package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu        sync.Mutex
	assigned  []app.AssignmentNotice
	summaries []app.AssignmentSummaryNotice
	completed []app.CompletionNotice
	err       error
}

func (r *recordingNotifier) QuizAssigned(_ context.Context, n app.AssignmentNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned = append(r.assigned, n)
	return r.err
}

func (r *recordingNotifier) AssignmentsSummary(_ context.Context, n app.AssignmentSummaryNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, n)
	return r.err
}

func (r *recordingNotifier) AssignmentCompleted(_ context.Context, n app.CompletionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, n)
	return r.err
}

type testEnv struct {
	services *app.Services
	stores   app.Stores
	clock    *clock
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, opts app.Options) *testEnv {
	t.Helper()
	stores := memory.NewStore().Stores()
	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "instructor", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IsActive: true},
		{ID: "alice", FirstName: "Alice", Email: "alice@example.com", IsActive: true},
		{ID: "bob", FirstName: "Bob", Email: "bob@example.com", IsActive: true},
		{ID: "dormant", FirstName: "Dora", Email: "dora@example.com", IsActive: false},
	} {
		if err := stores.Users.SaveUser(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	env := &testEnv{stores: stores, clock: newClock(), notifier: &recordingNotifier{}}
	if opts.Now == nil {
		opts.Now = env.clock.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = env.notifier
	}
	env.services = app.NewServices(stores, opts)
	t.Cleanup(env.services.Drain)
	return env
}

// twoQuestionInput has option 0 correct on both questions.
func twoQuestionInput(category string, public bool) domain.QuizInput {
	return domain.QuizInput{
		Title:    "Two questions",
		Category: category,
		IsPublic: &public,
		Questions: []domain.Question{
			{Question: "First?", Options: []domain.Option{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
			{Question: "Second?", Options: []domain.Option{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
		},
	}
}

func (e *testEnv) createQuiz(t *testing.T, category string, public bool) domain.Quiz {
	t.Helper()
	quiz, err := e.services.Quizzes.CreateQuiz(context.Background(), "instructor", twoQuestionInput(category, public))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func answers(values ...int) []*int {
	out := make([]*int, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func TestCreateQuizAppliesDefaultsAndLinksCreator(t *testing.T) {
	env := newTestEnv(t, app.Options{})
	ctx := context.Background()

	in := twoQuestionInput("", true)
	in.IsPublic = nil
	quiz, err := env.services.Quizzes.CreateQuiz(ctx, "instructor", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.Category != domain.DefaultCategory || quiz.Difficulty != domain.DifficultyMedium || !quiz.IsPublic {
		t.Fatalf("defaults not applied: %+v", quiz)
	}
	instructor, _ := env.stores.Users.GetUser(ctx, "instructor")
	if len(instructor.QuizzesCreated) != 1 || instructor.QuizzesCreated[0] != quiz.ID {
		t.Fatalf("quiz not linked to creator: %v", instructor.QuizzesCreated)
	}

	if _, err := env.services.Quizzes.CreateQuiz(ctx, "ghost", twoQuestionInput("", true)); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected unknown creator to fail, got %v", err)
	}
}

func TestUpdateAndDeleteAreCreatorOnly(t *testing.T) {
	env := newTestEnv(t, app.Options{})
	ctx := context.Background()
	quiz := env.createQuiz(t, "Math", true)

	if _, err := env.services.Quizzes.SubmitQuiz(ctx, "alice", quiz.ID, domain.Submission{Answers: answers(0, 0)}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	in := twoQuestionInput("Science", true)
	in.Title = "Renamed"
	if _, err := env.services.Quizzes.UpdateQuiz(ctx, "alice", quiz.ID, in); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := env.services.Quizzes.UpdateQuiz(ctx, "instructor", quiz.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" || updated.TotalAttempts != 1 || len(updated.Attempts) != 1 {
		t.Fatalf("update must keep attempts: %+v", updated)
	}

	if err := env.services.Quizzes.DeleteQuiz(ctx, "alice", quiz.ID); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := env.services.Quizzes.DeleteQuiz(ctx, "instructor", quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.stores.Quizzes.GetQuiz(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("quiz should be gone, got %v", err)
	}
	instructor, _ := env.stores.Users.GetUser(ctx, "instructor")
	if len(instructor.QuizzesCreated) != 0 {
		t.Fatalf("creator link should be removed: %v", instructor.QuizzesCreated)
	}
}

func TestPrivateQuizVisibility(t *testing.T) {
	env := newTestEnv(t, app.Options{})
	ctx := context.Background()
	quiz := env.createQuiz(t, "Math", false)

	if _, err := env.services.Quizzes.GetQuizForTaking(ctx, "alice", quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("private quiz must be hidden, got %v", err)
	}
	if _, err := env.services.Quizzes.GetQuizForTaking(ctx, "", quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("private quiz must be hidden from anonymous viewers, got %v", err)
	}
	if _, err := env.services.Quizzes.SubmitQuiz(ctx, "alice", quiz.ID, domain.Submission{Answers: answers(0)}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("direct submit on hidden quiz must fail, got %v", err)
	}

	view, err := env.services.Quizzes.GetQuizForTaking(ctx, "instructor", quiz.ID)
	if err != nil {
		t.Fatalf("creator view: %v", err)
	}
	for _, q := range view.Questions {
		for _, o := range q.Options {
			if o.IsCorrect {
				t.Fatal("view leaked a correct option")
			}
		}
	}

	if _, err := env.services.Assignments.Assign(ctx, "instructor", quiz.ID, app.AssignRequest{AssignedTo: []string{"alice"}}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.services.Quizzes.GetQuizForTaking(ctx, "alice", quiz.ID); err != nil {
		t.Fatalf("assignee should see the quiz: %v", err)
	}

	public, err := env.services.Quizzes.ListPublicQuizzes(ctx)
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(public) != 0 {
		t.Fatalf("private quiz listed as public: %+v", public)
	}
}

func TestListPublicQuizzesNewestFirst(t *testing.T) {
	env := newTestEnv(t, app.Options{})
	older := env.createQuiz(t, "Math", true)
	env.clock.Advance(time.Minute)
	newer := env.createQuiz(t, "Math", true)

	views, err := env.services.Quizzes.ListPublicQuizzes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 || views[0].ID != newer.ID || views[1].ID != older.ID {
		t.Fatalf("unexpected order %v", views)
	}
	if views[0].Creator == nil || views[0].Creator.FirstName != "Ada" {
		t.Fatalf("creator not resolved: %+v", views[0].Creator)
	}
}
