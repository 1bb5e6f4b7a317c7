package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func validInput() QuizInput {
	return QuizInput{
		Title: "  Capitals  ",
		Questions: []Question{
			{Question: "Capital of France?", Options: []Option{{Text: "Paris", IsCorrect: true}, {Text: " Lyon "}}},
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	in := validInput().Normalize()
	if in.Title != "Capitals" || in.Category != DefaultCategory || in.Difficulty != DifficultyMedium {
		t.Fatalf("unexpected normalised input %+v", in)
	}
	if in.IsPublic == nil || !*in.IsPublic {
		t.Fatal("quizzes default to public")
	}
	if in.Questions[0].Options[1].Text != "Lyon" {
		t.Fatalf("option text should be trimmed, got %q", in.Questions[0].Options[1].Text)
	}
	if err := ValidateQuiz(in); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestValidateQuizRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuizInput)
		want   string
	}{
		{"no questions", func(in *QuizInput) { in.Questions = nil }, "at least one question"},
		{"one option", func(in *QuizInput) { in.Questions[0].Options = in.Questions[0].Options[:1] }, "between 2 and 5"},
		{"six options", func(in *QuizInput) {
			for i := 0; i < 4; i++ {
				in.Questions[0].Options = append(in.Questions[0].Options, Option{Text: fmt.Sprint(i)})
			}
		}, "between 2 and 5"},
		{"empty title", func(in *QuizInput) { in.Title = "   " }, "Title is required"},
		{"long title", func(in *QuizInput) { in.Title = strings.Repeat("x", 101) }, "cannot exceed 100"},
		{"empty option text", func(in *QuizInput) { in.Questions[0].Options[1].Text = "" }, "is required"},
		{"bad difficulty", func(in *QuizInput) { in.Difficulty = "brutal" }, "must be one of"},
		{"zero time limit", func(in *QuizInput) { zero := 0; in.TimeLimit = &zero }, "at least 1"},
		{"no correct option", func(in *QuizInput) { in.Questions[0].Options[0].IsCorrect = false }, "must have a correct option"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := ValidateQuiz(in.Normalize())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if KindOf(err) != KindInvalidInput {
				t.Fatalf("expected invalid_input, got %s", KindOf(err))
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	if err := ValidateSubmission(Submission{}); !errors.Is(err, ErrInvalidAnswers) {
		t.Fatalf("missing answers must be rejected, got %v", err)
	}
	if err := ValidateSubmission(Submission{Answers: []*int{}}); err != nil {
		t.Fatalf("empty answers array is allowed, got %v", err)
	}
	if err := ValidateSubmission(Submission{Answers: []*int{nil}, TimeTaken: -1}); KindOf(err) != KindInvalidInput {
		t.Fatalf("negative time must be invalid, got %v", err)
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Second), now.Add(time.Second)
	tests := []struct {
		name string
		a    Assignment
		want AssignmentStatus
	}{
		{"pending without deadline", Assignment{Status: StatusPending}, StatusPending},
		{"pending before deadline", Assignment{Status: StatusPending, ExpiresAt: &future}, StatusPending},
		{"pending at deadline", Assignment{Status: StatusPending, ExpiresAt: &now}, StatusExpired},
		{"pending after deadline", Assignment{Status: StatusPending, ExpiresAt: &past}, StatusExpired},
		{"completed after deadline", Assignment{Status: StatusCompleted, ExpiresAt: &past}, StatusCompleted},
	}
	for _, tc := range tests {
		if got := tc.a.EffectiveStatus(now); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("store: %w", ErrDuplicateAssignment)
	if !errors.Is(wrapped, ErrDuplicateAssignment) || KindOf(wrapped) != KindConflict {
		t.Fatalf("kind lost through wrapping: %v", wrapped)
	}
	if PublicMessage(wrapped) != ErrDuplicateAssignment.Message {
		t.Fatalf("unexpected public message %q", PublicMessage(wrapped))
	}
	if KindOf(errors.New("boom")) != KindInternal || PublicMessage(errors.New("boom")) != "" {
		t.Fatal("plain errors are internal with no public message")
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatal("unknown status must fail to parse")
	}
}

func TestRedactedStripsAnswers(t *testing.T) {
	quiz := Quiz{
		Questions: []Question{{Question: "?", Options: []Option{{Text: "a", IsCorrect: true}, {Text: "b"}}}},
		Attempts:  []Attempt{{UserID: "u", Score: 1}},
	}
	r := quiz.Redacted()
	if r.Attempts != nil || r.Questions[0].Options[0].IsCorrect {
		t.Fatalf("redaction incomplete: %+v", r)
	}
	if !quiz.Questions[0].Options[0].IsCorrect {
		t.Fatal("redaction must not mutate the original")
	}
}
