package http

import (
	"net/http"
	"strconv"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/gin-gonic/gin"
)

type userHandler struct {
	stats   *app.StatsService
	quizzes *app.QuizService
	errs    errorResponder
}

func (h *userHandler) getStats(c *gin.Context) {
	stats, err := h.stats.UserStats(c.Request.Context(), callerID(c))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", stats)
}

func (h *userHandler) getHistory(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	history, err := h.stats.QuizHistory(c.Request.Context(), callerID(c), page, limit)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", history)
}

func (h *userHandler) getCreatedQuizzes(c *gin.Context) {
	quizzes, err := h.quizzes.ListCreatedQuizzes(c.Request.Context(), callerID(c))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", quizzes)
}

func (h *userHandler) getLeaderboard(c *gin.Context) {
	lb, err := h.stats.Leaderboard(c.Request.Context(), domain.LeaderboardQuery{
		Limit:    queryInt(c, "limit", app.DefaultLeaderboardLimit),
		Category: c.Query("category"),
	})
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", lb)
}

// queryInt parses a positive integer query parameter, falling back on
// absent or malformed values.
func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
