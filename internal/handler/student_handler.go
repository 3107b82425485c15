package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/middleware"
	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/response"
	"github.com/coursiva/enroll-gateway/internal/service"
	"github.com/coursiva/enroll-gateway/internal/upstream"
	"github.com/coursiva/enroll-gateway/internal/validator"
)

// StudentHandler handles the student-facing enrollment endpoints.
type StudentHandler struct {
	enrollments  *service.EnrollmentService
	ratings      *service.RatingService
	certificates *service.CertificateService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(enrollments *service.EnrollmentService, ratings *service.RatingService, certificates *service.CertificateService) *StudentHandler {
	return &StudentHandler{
		enrollments:  enrollments,
		ratings:      ratings,
		certificates: certificates,
	}
}

// ListEnrollments godoc
// GET /api/v1/student/enrollments
// Returns the student's enrollments with embedded course snapshots.
func (h *StudentHandler) ListEnrollments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	enrollments, err := h.enrollments.List(c.Request.Context(), claims.UserID)
	if err != nil {
		failUpstream(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// Enroll godoc
// POST /api/v1/student/enrollments
// Enrolls the student in a course.
func (h *StudentHandler) Enroll(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EnrollRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyEnrolled):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyEnrolled)
		case errors.Is(err, upstream.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			failUpstream(c, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"enrollment": enrollment})
}

// Unenroll godoc
// DELETE /api/v1/student/enrollments/:enrollment_id
func (h *StudentHandler) Unenroll(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	enrollmentID, err := uuid.Parse(c.Param("enrollment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.enrollments.Unenroll(c.Request.Context(), claims.UserID, enrollmentID); err != nil {
		switch {
		case errors.Is(err, service.ErrEnrollmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			failUpstream(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unenrolled": true})
}

// RateCourse godoc
// POST /api/v1/student/enrollments/:enrollment_id/rating
// Rates a completed course. Rating never marks the course complete.
func (h *StudentHandler) RateCourse(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	enrollment, ok := h.findOwned(c, claims.UserID)
	if !ok {
		return
	}

	var req model.RateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.ratings.Rate(c.Request.Context(), enrollment, req.Stars, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotCompleted):
			response.Fail(c, http.StatusConflict, response.ErrNotCompleted)
		case errors.Is(err, service.ErrStarsOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		default:
			failUpstream(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// CertificateEligibility godoc
// GET /api/v1/student/enrollments/:enrollment_id/certificate/eligibility
func (h *StudentHandler) CertificateEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	enrollment, ok := h.findOwned(c, claims.UserID)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"eligible":  service.IsEligible(enrollment),
		"completed": enrollment.Completed,
		"passed":    enrollment.HasPassed(),
	})
}

// DownloadCertificate godoc
// GET /api/v1/student/enrollments/:enrollment_id/certificate
// Streams the completion certificate PDF.
func (h *StudentHandler) DownloadCertificate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	enrollment, ok := h.findOwned(c, claims.UserID)
	if !ok {
		return
	}

	pdf, err := h.certificates.Render(c.Request.Context(), enrollment, claims.Name)
	if err != nil {
		if errors.Is(err, service.ErrNotEligible) {
			response.Fail(c, http.StatusConflict, response.ErrNotEligible)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, enrollment.EnrollmentID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// findOwned resolves :enrollment_id and enforces ownership. On failure the
// response is already written and ok is false.
func (h *StudentHandler) findOwned(c *gin.Context, studentID uuid.UUID) (model.Enrollment, bool) {
	enrollmentID, err := uuid.Parse(c.Param("enrollment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return model.Enrollment{}, false
	}

	enrollment, err := h.enrollments.Find(c.Request.Context(), studentID, enrollmentID)
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

// failUpstream maps upstream transport failures onto the envelope.
func failUpstream(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upstream.ErrUnavailable):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamUnavailable)
	case errors.Is(err, upstream.ErrServer):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamError)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
