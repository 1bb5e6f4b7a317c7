package mongo

import (
	"time"

	"quizgen/internal/domain"
)

type optionDoc struct {
	Text      string `bson:"text"`
	IsCorrect bool   `bson:"isCorrect"`
}

type questionDoc struct {
	Question string      `bson:"question"`
	Options  []optionDoc `bson:"options"`
}

type answerDoc struct {
	QuestionIndex  int  `bson:"questionIndex"`
	SelectedOption *int `bson:"selectedOption"`
	IsCorrect      bool `bson:"isCorrect"`
}

type attemptDoc struct {
	User           string      `bson:"user"`
	Score          int         `bson:"score"`
	TotalQuestions int         `bson:"totalQuestions"`
	Answers        []answerDoc `bson:"answers"`
	CompletedAt    time.Time   `bson:"completedAt"`
}

type quizDoc struct {
	ID            string        `bson:"_id"`
	Creator       string        `bson:"creator"`
	Title         string        `bson:"title"`
	Description   string        `bson:"description"`
	IsPublic      bool          `bson:"isPublic"`
	Category      string        `bson:"category"`
	Difficulty    string        `bson:"difficulty"`
	TimeLimit     *int          `bson:"timeLimit,omitempty"`
	Questions     []questionDoc `bson:"questions"`
	Attempts      []attemptDoc  `bson:"attempts"`
	AverageScore  float64       `bson:"averageScore"`
	TotalAttempts int           `bson:"totalAttempts"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

type assignmentDoc struct {
	ID             string     `bson:"_id"`
	Quiz           string     `bson:"quiz"`
	AssignedBy     string     `bson:"assignedBy"`
	AssignedTo     string     `bson:"assignedTo"`
	AssignedAt     time.Time  `bson:"assignedAt"`
	Status         string     `bson:"status"`
	CompletedAt    *time.Time `bson:"completedAt,omitempty"`
	Score          *int       `bson:"score,omitempty"`
	TotalQuestions *int       `bson:"totalQuestions,omitempty"`
	TimeTaken      int        `bson:"timeTaken"`
	ExpiresAt      *time.Time `bson:"expiresAt,omitempty"`
}

type takenDoc struct {
	Quiz           string    `bson:"quiz"`
	Score          int       `bson:"score"`
	TotalQuestions int       `bson:"totalQuestions"`
	CompletedAt    time.Time `bson:"completedAt"`
}

type userDoc struct {
	ID             string     `bson:"_id"`
	FirstName      string     `bson:"firstName"`
	LastName       string     `bson:"lastName"`
	Email          string     `bson:"email"`
	IsActive       bool       `bson:"isActive"`
	QuizzesCreated []string   `bson:"quizzesCreated"`
	QuizzesTaken   []takenDoc `bson:"quizzesTaken"`
}

func questionsToDocs(in []domain.Question) []questionDoc {
	out := make([]questionDoc, len(in))
	for i, q := range in {
		opts := make([]optionDoc, len(q.Options))
		for j, o := range q.Options {
			opts[j] = optionDoc{Text: o.Text, IsCorrect: o.IsCorrect}
		}
		out[i] = questionDoc{Question: q.Question, Options: opts}
	}
	return out
}

func attemptToDoc(a domain.Attempt) attemptDoc {
	answers := make([]answerDoc, len(a.Answers))
	for i, r := range a.Answers {
		answers[i] = answerDoc{QuestionIndex: r.QuestionIndex, SelectedOption: r.SelectedOption, IsCorrect: r.IsCorrect}
	}
	return attemptDoc{
		User:           a.UserID,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		Answers:        answers,
		CompletedAt:    a.CompletedAt,
	}
}

func quizToDoc(q domain.Quiz) quizDoc {
	attempts := make([]attemptDoc, len(q.Attempts))
	for i, a := range q.Attempts {
		attempts[i] = attemptToDoc(a)
	}
	return quizDoc{
		ID:            q.ID,
		Creator:       q.CreatorID,
		Title:         q.Title,
		Description:   q.Description,
		IsPublic:      q.IsPublic,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
		TimeLimit:     q.TimeLimit,
		Questions:     questionsToDocs(q.Questions),
		Attempts:      attempts,
		AverageScore:  q.AverageScore,
		TotalAttempts: q.TotalAttempts,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (d quizDoc) toDomain() domain.Quiz {
	questions := make([]domain.Question, len(d.Questions))
	for i, q := range d.Questions {
		opts := make([]domain.Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = domain.Option{Text: o.Text, IsCorrect: o.IsCorrect}
		}
		questions[i] = domain.Question{Question: q.Question, Options: opts}
	}
	attempts := make([]domain.Attempt, len(d.Attempts))
	for i, a := range d.Attempts {
		answers := make([]domain.AnswerRecord, len(a.Answers))
		for j, r := range a.Answers {
			answers[j] = domain.AnswerRecord{QuestionIndex: r.QuestionIndex, SelectedOption: r.SelectedOption, IsCorrect: r.IsCorrect}
		}
		attempts[i] = domain.Attempt{
			UserID:         a.User,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Answers:        answers,
			CompletedAt:    a.CompletedAt,
		}
	}
	return domain.Quiz{
		ID:            d.ID,
		CreatorID:     d.Creator,
		Title:         d.Title,
		Description:   d.Description,
		IsPublic:      d.IsPublic,
		Category:      d.Category,
		Difficulty:    d.Difficulty,
		TimeLimit:     d.TimeLimit,
		Questions:     questions,
		Attempts:      attempts,
		AverageScore:  d.AverageScore,
		TotalAttempts: d.TotalAttempts,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func assignmentToDoc(a domain.Assignment) assignmentDoc {
	return assignmentDoc{
		ID:             a.ID,
		Quiz:           a.QuizID,
		AssignedBy:     a.AssignedBy,
		AssignedTo:     a.AssignedTo,
		AssignedAt:     a.AssignedAt,
		Status:         string(a.Status),
		CompletedAt:    a.CompletedAt,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		TimeTaken:      a.TimeTaken,
		ExpiresAt:      a.ExpiresAt,
	}
}

func (d assignmentDoc) toDomain() domain.Assignment {
	return domain.Assignment{
		ID:             d.ID,
		QuizID:         d.Quiz,
		AssignedBy:     d.AssignedBy,
		AssignedTo:     d.AssignedTo,
		AssignedAt:     d.AssignedAt,
		Status:         domain.AssignmentStatus(d.Status),
		CompletedAt:    d.CompletedAt,
		Score:          d.Score,
		TotalQuestions: d.TotalQuestions,
		TimeTaken:      d.TimeTaken,
		ExpiresAt:      d.ExpiresAt,
	}
}

func takenToDoc(t domain.AttemptSummary) takenDoc {
	return takenDoc{Quiz: t.QuizID, Score: t.Score, TotalQuestions: t.TotalQuestions, CompletedAt: t.CompletedAt}
}

func userToDoc(u domain.User) userDoc {
	taken := make([]takenDoc, len(u.QuizzesTaken))
	for i, t := range u.QuizzesTaken {
		taken[i] = takenToDoc(t)
	}
	created := u.QuizzesCreated
	if created == nil {
		created = []string{}
	}
	return userDoc{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		IsActive:       u.IsActive,
		QuizzesCreated: created,
		QuizzesTaken:   taken,
	}
}

func (d userDoc) toDomain() domain.User {
	taken := make([]domain.AttemptSummary, len(d.QuizzesTaken))
	for i, t := range d.QuizzesTaken {
		taken[i] = domain.AttemptSummary{QuizID: t.Quiz, Score: t.Score, TotalQuestions: t.TotalQuestions, CompletedAt: t.CompletedAt}
	}
	return domain.User{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		IsActive:       d.IsActive,
		QuizzesCreated: append([]string(nil), d.QuizzesCreated...),
		QuizzesTaken:   taken,
	}
}
