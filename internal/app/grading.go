package app

import (
	"math"

	"quizgen/internal/domain"
)

// Grade scores a submission against a quiz definition. Answers beyond the
// question count are ignored; missing, nil or out-of-range answers count as
// incorrect and never produce an error.
func Grade(quiz domain.Quiz, answers []*int) domain.GradingResult {
	total := len(quiz.Questions)
	breakdown := make([]domain.AnswerRecord, total)
	score := 0
	for i, question := range quiz.Questions {
		var selected *int
		if i < len(answers) && answers[i] != nil {
			v := *answers[i]
			selected = &v
		}
		correct := selected != nil &&
			*selected >= 0 && *selected < len(question.Options) &&
			question.Options[*selected].IsCorrect
		if correct {
			score++
		}
		breakdown[i] = domain.AnswerRecord{
			QuestionIndex:  i,
			SelectedOption: selected,
			IsCorrect:      correct,
		}
	}
	return domain.GradingResult{
		Score:          score,
		TotalQuestions: total,
		Percentage:     Percentage(score, total),
		Breakdown:      breakdown,
	}
}

// Percentage returns score/total as a whole percent, 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// AverageScore is the mean attempt score rounded to 2 decimals. It is a pure
// function of the attempt log so repeated recomputes agree.
func AverageScore(attempts []domain.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	sum := 0
	for _, a := range attempts {
		sum += a.Score
	}
	return round2(float64(sum) / float64(len(attempts)))
}

// RecomputeAggregates sets the derived fields of quiz from its attempt log.
func RecomputeAggregates(quiz *domain.Quiz) {
	quiz.TotalAttempts = len(quiz.Attempts)
	quiz.AverageScore = AverageScore(quiz.Attempts)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
