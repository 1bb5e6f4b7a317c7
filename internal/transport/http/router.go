package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"quizgen/internal/app"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries everything the HTTP layer needs.
type RouterConfig struct {
	Services       *app.Services
	Logger         *slog.Logger
	JWTSecret      string
	AllowedOrigins []string
	// Development exposes raw error strings in 500 responses.
	Development bool
}

// NewRouter builds the gin engine with every API route mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := authenticator{secret: []byte(cfg.JWTSecret)}
	errs := errorResponder{log: cfg.Logger, development: cfg.Development}
	quizzes := &quizHandler{quizzes: cfg.Services.Quizzes, errs: errs}
	ledger := &assignmentHandler{assignments: cfg.Services.Assignments, errs: errs}
	users := &userHandler{stats: cfg.Services.Stats, quizzes: cfg.Services.Quizzes, errs: errs}
	feed := NewLeaderboardFeed(cfg.Services.Feed, cfg.Services.Stats, cfg.AllowedOrigins, cfg.Logger)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws/leaderboard", feed.Serve)

	api := r.Group("/api")

	quiz := api.Group("/quiz")
	quiz.GET("/public", auth.optional(), quizzes.listPublic)
	quiz.GET("/user/created", auth.require(), quizzes.listCreated)
	quiz.GET("/assigned", auth.require(), ledger.listAssigned)
	quiz.GET("/assigned/:quizId", auth.require(), ledger.getAssignedQuiz)
	quiz.GET("/assignments/results", auth.require(), ledger.listResults)
	quiz.POST("", auth.require(), quizzes.create)
	quiz.GET("/:quizId", auth.optional(), quizzes.get)
	quiz.PUT("/:quizId", auth.require(), quizzes.update)
	quiz.DELETE("/:quizId", auth.require(), quizzes.delete)
	quiz.POST("/:quizId/submit", auth.require(), quizzes.submit)
	quiz.POST("/:quizId/assign", auth.require(), ledger.assign)

	assignments := api.Group("/assignments", auth.require())
	assignments.GET("/:assignmentId", ledger.get)
	assignments.POST("/:assignmentId/submit", ledger.submit)

	user := api.Group("/user", auth.require())
	user.GET("/stats", users.getStats)
	user.GET("/history", users.getHistory)
	user.GET("/created-quizzes", users.getCreatedQuizzes)
	user.GET("/leaderboard", users.getLeaderboard)

	return r
}
