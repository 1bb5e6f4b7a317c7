package domain

import "time"

// Difficulty levels accepted for a quiz.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultCategory is applied when a quiz is created without a category.
const DefaultCategory = "General"

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models a multiple-choice question with 2 to 5 options.
type Question struct {
	Question string   `json:"question" validate:"required,max=1000"`
	Options  []Option `json:"options" validate:"min=2,max=5,dive"`
}

// AnswerRecord is the graded outcome for one question of an attempt.
type AnswerRecord struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedOption *int `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
}

// Attempt is an entry in the append-only attempt log embedded in a quiz.
type Attempt struct {
	UserID         string         `json:"user"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
	CompletedAt    time.Time      `json:"completedAt"`
}

// Quiz is a quiz definition plus its attempt log and derived aggregates.
type Quiz struct {
	ID            string     `json:"id"`
	CreatorID     string     `json:"creator"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	IsPublic      bool       `json:"isPublic"`
	Category      string     `json:"category"`
	Difficulty    string     `json:"difficulty"`
	TimeLimit     *int       `json:"timeLimit"` // minutes
	Questions     []Question `json:"questions"`
	Attempts      []Attempt  `json:"attempts"`
	AverageScore  float64    `json:"averageScore"`
	TotalAttempts int        `json:"totalAttempts"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// QuizInput carries the creator-editable fields of a quiz.
type QuizInput struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	IsPublic    *bool      `json:"isPublic"`
	Category    string     `json:"category" validate:"max=100"`
	Difficulty  string     `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	TimeLimit   *int       `json:"timeLimit" validate:"omitempty,min=1"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
}

// Redacted returns a copy safe to hand to a learner: no correct-answer
// flags and no attempt log.
func (q Quiz) Redacted() Quiz {
	out := q
	out.Attempts = nil
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		opts := make([]Option, len(question.Options))
		for j, opt := range question.Options {
			opts[j] = Option{Text: opt.Text}
		}
		out.Questions[i] = Question{Question: question.Question, Options: opts}
	}
	return out
}

// AssignmentStatus is the stored or observed state of an assignment.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusCompleted AssignmentStatus = "completed"
	StatusExpired   AssignmentStatus = "expired"
)

// Assignment records that a quiz was assigned to a user by another user.
type Assignment struct {
	ID             string           `json:"id"`
	QuizID         string           `json:"quiz"`
	AssignedBy     string           `json:"assignedBy"`
	AssignedTo     string           `json:"assignedTo"`
	AssignedAt     time.Time        `json:"assignedAt"`
	Status         AssignmentStatus `json:"status"`
	CompletedAt    *time.Time       `json:"completedAt"`
	Score          *int             `json:"score"`
	TotalQuestions *int             `json:"totalQuestions"`
	TimeTaken      int              `json:"timeTaken"` // seconds
	ExpiresAt      *time.Time       `json:"expiresAt"`
}

// EffectiveStatus reports the status observed at now. A pending assignment
// whose deadline has passed reads as expired even before a sweep persists it.
func (a Assignment) EffectiveStatus(now time.Time) AssignmentStatus {
	if a.Status == StatusPending && a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
		return StatusExpired
	}
	return a.Status
}

// Observed returns a copy whose Status is the effective status at now.
func (a Assignment) Observed(now time.Time) Assignment {
	a.Status = a.EffectiveStatus(now)
	return a
}

// AssignmentResult is written to an assignment when it completes.
type AssignmentResult struct {
	Score          int
	TotalQuestions int
	TimeTaken      int
	CompletedAt    time.Time
}

// AttemptSummary is the per-attempt entry kept on a user profile.
type AttemptSummary struct {
	QuizID         string    `json:"quiz"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
}

// User is the subset of the user record this service reads and maintains.
type User struct {
	ID             string           `json:"id"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Email          string           `json:"email"`
	IsActive       bool             `json:"isActive"`
	QuizzesCreated []string         `json:"quizzesCreated"`
	QuizzesTaken   []AttemptSummary `json:"quizzesTaken"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Submission is a learner's answer set. A nil entry means unanswered.
type Submission struct {
	Answers   []*int `json:"answers"`
	TimeTaken int    `json:"timeTaken"`
}

// GradingResult is the outcome of grading one submission.
type GradingResult struct {
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	Breakdown      []AnswerRecord `json:"perQuestionBreakdown"`
}

// SubmissionResult is returned to the learner after a graded submission.
type SubmissionResult struct {
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	TimeTaken      int            `json:"timeTaken"`
	AssignmentID   string         `json:"assignmentId,omitempty"`
	Breakdown      []AnswerRecord `json:"perQuestionBreakdown"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID            string  `json:"userId"`
	FirstName         string  `json:"firstName"`
	LastName          string  `json:"lastName"`
	TotalQuizzesTaken int     `json:"totalQuizzesTaken"`
	AverageScore      float64 `json:"averageScore"`
	TotalScore        int     `json:"totalScore"`
	TotalQuestions    int     `json:"totalQuestions"`
}

// Leaderboard captures the ordered ranking at a point in time.
type Leaderboard struct {
	Category  string             `json:"category,omitempty"`
	Entries   []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// LeaderboardQuery narrows a leaderboard computation.
type LeaderboardQuery struct {
	Limit    int
	Category string
}

// CategoryStats aggregates a user's attempts within one quiz category.
type CategoryStats struct {
	Count          int `json:"count"`
	TotalScore     int `json:"totalScore"`
	TotalQuestions int `json:"totalQuestions"`
	AverageScore   int `json:"averageScore"`
}

// UserStats is the per-user statistics summary.
type UserStats struct {
	QuizzesCreated int                      `json:"quizzesCreated"`
	QuizzesTaken   int                      `json:"quizzesTaken"`
	AverageScore   int                      `json:"averageScore"`
	TotalQuestions int                      `json:"totalQuestions"`
	CategoryStats  map[string]CategoryStats `json:"categoryStats"`
	RecentAttempts []AttemptSummary         `json:"recentAttempts"`
}

// HistoryEntry is an attempt summary enriched with quiz metadata.
type HistoryEntry struct {
	AttemptSummary
	Title      string `json:"title"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}
