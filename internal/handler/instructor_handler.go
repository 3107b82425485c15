package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/response"
	"github.com/coursiva/enroll-gateway/internal/service"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// InstructorHandler handles the instructor-facing endpoints.
type InstructorHandler struct {
	enrollments *service.EnrollmentService
	completion  *service.CompletionService
	auth        *service.AuthService
}

// NewInstructorHandler creates a new InstructorHandler.
func NewInstructorHandler(enrollments *service.EnrollmentService, completion *service.CompletionService, auth *service.AuthService) *InstructorHandler {
	return &InstructorHandler{
		enrollments: enrollments,
		completion:  completion,
		auth:        auth,
	}
}

// Roster godoc
// GET /api/v1/instructor/courses/:course_id/enrollments
// Lists every enrollment in a course, read through to the platform.
func (h *InstructorHandler) Roster(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	enrollments, err := h.enrollments.Roster(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failUpstream(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// MarkComplete godoc
// PUT /api/v1/instructor/enrollments/:enrollment_id/complete
// Manually completes an enrollment. No test outcome is attached, so the
// student does not become certificate-eligible through this path.
func (h *InstructorHandler) MarkComplete(c *gin.Context) {
	enrollmentID, err := uuid.Parse(c.Param("enrollment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	enrollment, err := h.completion.MarkCompleteManually(c.Request.Context(), enrollmentID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failUpstream(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

// ResetStudentSession godoc
// POST /api/v1/instructor/students/:student_id/session/reset
// Clears the student's active single-device session so they can log in
// again from a new device.
func (h *InstructorHandler) ResetStudentSession(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.auth.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
