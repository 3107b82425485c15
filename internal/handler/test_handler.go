package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/middleware"
	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/quiz"
	"github.com/coursiva/enroll-gateway/internal/response"
	"github.com/coursiva/enroll-gateway/internal/service"
	"github.com/coursiva/enroll-gateway/internal/validator"
)

// TestHandler handles the test-taking endpoints for one enrollment.
type TestHandler struct {
	registry    *quiz.Registry
	enrollments *service.EnrollmentService
	completion  *service.CompletionService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(registry *quiz.Registry, enrollments *service.EnrollmentService, completion *service.CompletionService) *TestHandler {
	return &TestHandler{
		registry:    registry,
		enrollments: enrollments,
		completion:  completion,
	}
}

// StartTest godoc
// POST /api/v1/student/enrollments/:enrollment_id/test
// Starts (or rejoins) the timed test session for this enrollment.
func (h *TestHandler) StartTest(c *gin.Context) {
	enrollment, ok := h.findOwned(c)
	if !ok {
		return
	}

	session, created, err := h.registry.Start(enrollment.EnrollmentID)
	if err != nil {
		// Only ErrNoQuestions can surface here and it means a broken pool.
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{
		"questions":        model.StripAnswers(session.Questions()),
		"remainingSeconds": session.Remaining(),
		"answers":          session.Answers(),
		"rejoined":         !created,
	})
}

// Answer godoc
// POST /api/v1/student/enrollments/:enrollment_id/test/answers
// Records one answer selection; re-answering a question overwrites it.
func (h *TestHandler) Answer(c *gin.Context) {
	enrollment, ok := h.findOwned(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, found := h.registry.Get(enrollment.EnrollmentID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoTestSession)
		return
	}

	if err := session.SelectAnswer(req.QuestionIndex, req.OptionIndex); err != nil {
		switch {
		case errors.Is(err, quiz.ErrNotStarted):
			response.Fail(c, http.StatusConflict, response.ErrNoTestSession)
		case errors.Is(err, quiz.ErrAlreadySubmit):
			response.Fail(c, http.StatusConflict, response.ErrTestSubmitted)
		case errors.Is(err, quiz.ErrTimeExpired):
			response.Fail(c, http.StatusConflict, response.ErrTestTimeExpired)
		case errors.Is(err, quiz.ErrIndexOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrAnswerOutOfRange)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answers":          session.Answers(),
		"remainingSeconds": session.Remaining(),
	})
}

// GetState godoc
// GET /api/v1/student/enrollments/:enrollment_id/test
// Returns the live state of the session, including the result once submitted.
func (h *TestHandler) GetState(c *gin.Context) {
	enrollment, ok := h.findOwned(c)
	if !ok {
		return
	}

	session, found := h.registry.Get(enrollment.EnrollmentID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNoTestSession)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":            session.State(),
		"remainingSeconds": session.Remaining(),
		"answers":          session.Answers(),
		"result":           session.Result(),
	})
}

// SubmitTest godoc
// POST /api/v1/student/enrollments/:enrollment_id/test/submit
// Finalizes the session, scores it, and runs the completion sequence.
func (h *TestHandler) SubmitTest(c *gin.Context) {
	enrollment, ok := h.findOwned(c)
	if !ok {
		return
	}

	result, err := h.registry.Submit(enrollment.EnrollmentID)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrNotStarted):
			response.Fail(c, http.StatusConflict, response.ErrNoTestSession)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	outcome, err := h.completion.CompleteAfterTest(c.Request.Context(), enrollment, *result)
	if err != nil {
		// The score stands but the student got no completion credit yet.
		// The session stays registered submitted so the result survives
		// a retry of this endpoint.
		if errors.Is(err, service.ErrMarkCompleteFailed) {
			response.Fail(c, http.StatusBadGateway, response.ErrCompletionFailed)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.registry.Teardown(enrollment.EnrollmentID)

	if outcome.Partial {
		response.Degraded(c, http.StatusOK, outcome, response.ErrPartialFailure)
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

// AbandonTest godoc
// DELETE /api/v1/student/enrollments/:enrollment_id/test
// Abandons the in-progress session without scoring it.
func (h *TestHandler) AbandonTest(c *gin.Context) {
	enrollment, ok := h.findOwned(c)
	if !ok {
		return
	}

	h.registry.Teardown(enrollment.EnrollmentID)
	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

func (h *TestHandler) findOwned(c *gin.Context) (model.Enrollment, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return model.Enrollment{}, false
	}

	enrollmentID, err := uuid.Parse(c.Param("enrollment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return model.Enrollment{}, false
	}

	enrollment, err := h.enrollments.Find(c.Request.Context(), claims.UserID, enrollmentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEnrollmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			failUpstream(c, err)
		}
		return model.Enrollment{}, false
	}

	return enrollment, true
}
