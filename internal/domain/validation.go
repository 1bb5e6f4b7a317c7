package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Normalize trims free-text fields and fills in defaults. It returns a copy.
func (in QuizInput) Normalize() QuizInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Category = strings.TrimSpace(in.Category)
	if out.Category == "" {
		out.Category = DefaultCategory
	}
	if out.Difficulty == "" {
		out.Difficulty = DifficultyMedium
	}
	if out.IsPublic == nil {
		public := true
		out.IsPublic = &public
	}
	out.Questions = make([]Question, len(in.Questions))
	for i, q := range in.Questions {
		opts := make([]Option, len(q.Options))
		for j, opt := range q.Options {
			opts[j] = Option{Text: strings.TrimSpace(opt.Text), IsCorrect: opt.IsCorrect}
		}
		out.Questions[i] = Question{Question: strings.TrimSpace(q.Question), Options: opts}
	}
	return out
}

// ValidateQuiz checks a normalized quiz input. Every failure is an
// invalid-input error raised before anything is persisted.
func ValidateQuiz(in QuizInput) error {
	if len(in.Questions) == 0 {
		return Invalid("quiz must have at least one question")
	}
	for i, q := range in.Questions {
		if n := len(q.Options); n < 2 || n > 5 {
			return Invalid("question %d must have between 2 and 5 options", i+1)
		}
	}
	if err := validate.Struct(in); err != nil {
		return translate(err)
	}
	for i, q := range in.Questions {
		if !hasCorrectOption(q) {
			return Invalid("question %d must have a correct option", i+1)
		}
	}
	return nil
}

// ApplyTo copies the editable fields of a normalized input onto quiz.
func (in QuizInput) ApplyTo(quiz *Quiz) {
	quiz.Title = in.Title
	quiz.Description = in.Description
	quiz.Category = in.Category
	quiz.Difficulty = in.Difficulty
	quiz.TimeLimit = in.TimeLimit
	quiz.Questions = in.Questions
	if in.IsPublic != nil {
		quiz.IsPublic = *in.IsPublic
	}
}

func hasCorrectOption(q Question) bool {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return true
		}
	}
	return false
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Invalid("invalid quiz: %v", err)
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "QuizInput.")
	switch fe.Tag() {
	case "required":
		return Invalid("%s is required", field)
	case "max":
		return Invalid("%s cannot exceed %s characters", field, fe.Param())
	case "min":
		return Invalid("%s must be at least %s", field, fe.Param())
	case "oneof":
		return Invalid("%s must be one of: %s", field, fe.Param())
	}
	return Invalid("%s is invalid", field)
}

// ValidateSubmission rejects payloads that are not array-shaped.
func ValidateSubmission(sub Submission) error {
	if sub.Answers == nil {
		return ErrInvalidAnswers
	}
	if sub.TimeTaken < 0 {
		return Invalid("timeTaken cannot be negative")
	}
	return nil
}

// String renders a status for logs.
func (s AssignmentStatus) String() string { return string(s) }

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// ParseStatus converts a stored value into an AssignmentStatus.
func ParseStatus(raw string) (AssignmentStatus, error) {
	s := AssignmentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown assignment status %q", raw)
	}
	return s, nil
}
