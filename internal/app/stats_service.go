package app

import (
	"context"
	"math"
	"sort"

	"quizgen/internal/domain"
)

// DefaultLeaderboardLimit is used when a query asks for no explicit limit.
const DefaultLeaderboardLimit = 10

const recentAttemptsLimit = 5

// StatsService derives read-only summaries; it keeps no state of its own.
type StatsService struct {
	*core
}

// UserStats summarises the attempts and quizzes of one user.
func (s *StatsService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	user, err := s.stores.Users.GetUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	quizzes, err := s.quizzesTakenBy(ctx, []domain.User{user})
	if err != nil {
		return domain.UserStats{}, err
	}
	return BuildUserStats(user, categoriesOf(quizzes)), nil
}

// HistoryPage is one page of a user's attempt history.
type HistoryPage struct {
	Entries []domain.HistoryEntry `json:"entries"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}

// QuizHistory returns a user's attempts newest first, paginated.
func (s *StatsService) QuizHistory(ctx context.Context, userID string, page, limit int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	user, err := s.stores.Users.GetUser(ctx, userID)
	if err != nil {
		return HistoryPage{}, err
	}
	quizzes, err := s.quizzesTakenBy(ctx, []domain.User{user})
	if err != nil {
		return HistoryPage{}, err
	}

	taken := newestFirst(user.QuizzesTaken)
	out := HistoryPage{Total: len(taken), Page: page, Limit: limit, Entries: []domain.HistoryEntry{}}
	start := (page - 1) * limit
	if start >= len(taken) {
		return out, nil
	}
	end := min(start+limit, len(taken))
	for _, t := range taken[start:end] {
		entry := domain.HistoryEntry{AttemptSummary: t}
		if q, ok := quizzes[t.QuizID]; ok {
			entry.Title = q.Title
			entry.Category = q.Category
			entry.Difficulty = q.Difficulty
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// Leaderboard ranks users over their recorded attempts.
func (s *StatsService) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (domain.Leaderboard, error) {
	users, err := s.stores.Users.ListUsers(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	var categories map[string]string
	if q.Category != "" {
		quizzes, err := s.quizzesTakenBy(ctx, users)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		categories = categoriesOf(quizzes)
	}
	lb := BuildLeaderboard(users, categories, q)
	lb.UpdatedAt = s.now()
	return lb, nil
}

func (s *StatsService) quizzesTakenBy(ctx context.Context, users []domain.User) (map[string]domain.Quiz, error) {
	ids := make([]string, 0)
	for _, u := range users {
		for _, t := range u.QuizzesTaken {
			ids = append(ids, t.QuizID)
		}
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return map[string]domain.Quiz{}, nil
	}
	quizzes, err := s.stores.Quizzes.ListQuizzesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		out[q.ID] = q
	}
	return out, nil
}

func categoriesOf(quizzes map[string]domain.Quiz) map[string]string {
	out := make(map[string]string, len(quizzes))
	for id, q := range quizzes {
		out[id] = q.Category
	}
	return out
}

// BuildUserStats computes the statistics of one user. categories maps quiz
// id to category; attempts on unknown quizzes are left out of categoryStats.
func BuildUserStats(user domain.User, categories map[string]string) domain.UserStats {
	stats := domain.UserStats{
		QuizzesCreated: len(user.QuizzesCreated),
		QuizzesTaken:   len(user.QuizzesTaken),
		CategoryStats:  map[string]domain.CategoryStats{},
		RecentAttempts: []domain.AttemptSummary{},
	}
	totalScore := 0
	for _, t := range user.QuizzesTaken {
		totalScore += t.Score
		stats.TotalQuestions += t.TotalQuestions

		category, ok := categories[t.QuizID]
		if !ok || category == "" {
			continue
		}
		cs := stats.CategoryStats[category]
		cs.Count++
		cs.TotalScore += t.Score
		cs.TotalQuestions += t.TotalQuestions
		stats.CategoryStats[category] = cs
	}
	stats.AverageScore = Percentage(totalScore, stats.TotalQuestions)
	for category, cs := range stats.CategoryStats {
		cs.AverageScore = Percentage(cs.TotalScore, cs.TotalQuestions)
		stats.CategoryStats[category] = cs
	}

	recent := newestFirst(user.QuizzesTaken)
	if len(recent) > recentAttemptsLimit {
		recent = recent[:recentAttemptsLimit]
	}
	stats.RecentAttempts = append(stats.RecentAttempts, recent...)
	return stats
}

// BuildLeaderboard groups attempts per user, drops users without attempts,
// and orders by average score desc, attempt count desc, then user id. When
// q.Category is set only attempts on quizzes of that category count, using
// categories (quiz id -> category) for the lookup.
func BuildLeaderboard(users []domain.User, categories map[string]string, q domain.LeaderboardQuery) domain.Leaderboard {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entry := domain.LeaderboardEntry{UserID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
		for _, t := range u.QuizzesTaken {
			if q.Category != "" && categories[t.QuizID] != q.Category {
				continue
			}
			entry.TotalQuizzesTaken++
			entry.TotalScore += t.Score
			entry.TotalQuestions += t.TotalQuestions
		}
		if entry.TotalQuizzesTaken == 0 {
			continue
		}
		if entry.TotalQuestions > 0 {
			ratio := float64(entry.TotalScore) / float64(entry.TotalQuestions) * 100
			entry.AverageScore = math.Round(ratio*100) / 100
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if a.TotalQuizzesTaken != b.TotalQuizzesTaken {
			return a.TotalQuizzesTaken > b.TotalQuizzesTaken
		}
		return a.UserID < b.UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return domain.Leaderboard{Category: q.Category, Entries: entries}
}

func newestFirst(taken []domain.AttemptSummary) []domain.AttemptSummary {
	out := make([]domain.AttemptSummary, len(taken))
	copy(out, taken)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}
