package app_test

import (
	"testing"

	"quizgen/internal/app"
	"quizgen/internal/domain"
)

func gradingQuiz(n int) domain.Quiz {
	quiz := domain.Quiz{ID: "q"}
	for i := 0; i < n; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Question: "?",
			Options:  []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}},
		})
	}
	return quiz
}

func TestGradeHalfCorrect(t *testing.T) {
	got := app.Grade(gradingQuiz(2), answers(0, 1))
	if got.Score != 1 || got.TotalQuestions != 2 || got.Percentage != 50 {
		t.Fatalf("expected 1/2 = 50%%, got %+v", got)
	}
	if !got.Breakdown[0].IsCorrect || got.Breakdown[1].IsCorrect {
		t.Fatalf("unexpected breakdown %+v", got.Breakdown)
	}
}

func TestGradeAllCorrect(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		all := make([]int, n)
		got := app.Grade(gradingQuiz(n), answers(all...))
		if got.Score != n || got.Percentage != 100 {
			t.Fatalf("n=%d: expected full marks, got %+v", n, got)
		}
	}
}

func TestGradeToleratesBadAnswers(t *testing.T) {
	tests := []struct {
		name    string
		answers []*int
	}{
		{"nil entries", []*int{nil, nil, nil}},
		{"out of range", answers(5, 2, 99)},
		{"negative", answers(-1, -2, -3)},
		{"short", answers(1)},
		{"empty", []*int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := app.Grade(gradingQuiz(3), tc.answers)
			if got.Score != 0 || got.TotalQuestions != 3 || len(got.Breakdown) != 3 {
				t.Fatalf("expected 0/3 with full breakdown, got %+v", got)
			}
		})
	}
}

func TestGradeIgnoresExtraAnswers(t *testing.T) {
	got := app.Grade(gradingQuiz(1), answers(0, 0, 0))
	if got.Score != 1 || len(got.Breakdown) != 1 {
		t.Fatalf("extra answers must be ignored, got %+v", got)
	}
}

func TestGradeEmptyQuiz(t *testing.T) {
	got := app.Grade(domain.Quiz{}, answers(0))
	if got.Score != 0 || got.TotalQuestions != 0 || got.Percentage != 0 {
		t.Fatalf("expected zeroed result, got %+v", got)
	}
}

func TestAverageScoreIsStable(t *testing.T) {
	quiz := domain.Quiz{Attempts: []domain.Attempt{{Score: 1}, {Score: 2}, {Score: 2}}}
	app.RecomputeAggregates(&quiz)
	first := quiz.AverageScore
	app.RecomputeAggregates(&quiz)
	if quiz.AverageScore != first || first != 1.67 || quiz.TotalAttempts != 3 {
		t.Fatalf("expected stable 1.67 over 3 attempts, got %v then %v", first, quiz.AverageScore)
	}
	if app.AverageScore(nil) != 0 {
		t.Fatal("empty attempt log must average to 0")
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct{ score, total, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := app.Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}
