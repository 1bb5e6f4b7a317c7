package http

import (
	"net/http"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"github.com/gin-gonic/gin"
)

type assignmentHandler struct {
	assignments *app.AssignmentService
	errs        errorResponder
}

type assignRequest struct {
	AssignedTo []string   `json:"assignedTo" binding:"required,min=1,dive,required"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

func (h *assignmentHandler) assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "assignedTo must be a non-empty list of user ids")
		return
	}
	outcome, err := h.assignments.Assign(c.Request.Context(), callerID(c), c.Param("quizId"), app.AssignRequest{
		AssignedTo: req.AssignedTo,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Quiz assigned successfully", outcome)
}

func (h *assignmentHandler) listAssigned(c *gin.Context) {
	views, err := h.assignments.ListAssigned(c.Request.Context(), callerID(c))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", views)
}

func (h *assignmentHandler) listResults(c *gin.Context) {
	views, err := h.assignments.ListAssignmentResults(c.Request.Context(), callerID(c))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", views)
}

func (h *assignmentHandler) getAssignedQuiz(c *gin.Context) {
	assigned, err := h.assignments.GetAssignedQuizForTaking(c.Request.Context(), callerID(c), c.Param("quizId"))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", assigned)
}

func (h *assignmentHandler) get(c *gin.Context) {
	a, err := h.assignments.GetAssignment(c.Request.Context(), callerID(c), c.Param("assignmentId"))
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", a)
}

func (h *assignmentHandler) submit(c *gin.Context) {
	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.errs.badRequest(c, "invalid submission payload")
		return
	}
	result, err := h.assignments.SubmitAssignment(c.Request.Context(), callerID(c), c.Param("assignmentId"), sub)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Assignment submitted successfully", result)
}
