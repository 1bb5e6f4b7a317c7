package http

import (
	"net/http"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/gin-gonic/gin"
)

type quizHandler struct {
	quizzes *app.QuizService
	errs    errorResponder
}

func (h *quizHandler) listPublic(c *gin.Context) {
	quizzes, err := h.quizzes.ListPublicQuizzes(c.Request.Context())
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", quizzes)
}

func (h *quizHandler) listCreated(c *gin.Context) {
	quizzes, err := h.quizzes.ListCreatedQuizzes(c.Request.Context(), callerID(c))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", quizzes)
}

func (h *quizHandler) get(c *gin.Context) {
	quiz, err := h.quizzes.GetQuizForTaking(c.Request.Context(), callerID(c), c.Param("quizId"))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", quiz)
}

func (h *quizHandler) create(c *gin.Context) {
	var in domain.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errs.badRequest(c, "invalid quiz payload")
		return
	}
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), callerID(c), in)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Quiz created successfully", quiz)
}

func (h *quizHandler) update(c *gin.Context) {
	var in domain.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errs.badRequest(c, "invalid quiz payload")
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), callerID(c), c.Param("quizId"), in)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Quiz updated successfully", quiz)
}

func (h *quizHandler) delete(c *gin.Context) {
	if err := h.quizzes.DeleteQuiz(c.Request.Context(), callerID(c), c.Param("quizId")); err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Quiz deleted successfully", nil)
}

func (h *quizHandler) submit(c *gin.Context) {
	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.errs.badRequest(c, "invalid submission payload")
		return
	}
	result, err := h.quizzes.SubmitQuiz(c.Request.Context(), callerID(c), c.Param("quizId"), sub)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Quiz submitted successfully", result)
}
