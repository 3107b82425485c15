package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment records a student's relationship to one course. The platform
// API owns the durable record; the gateway only caches snapshots of it.
//
// Invariants maintained across the gateway:
//   - Completed == true implies CompletionDate != nil.
//   - Passed == true implies a test result with percentage >= 60 exists
//     upstream for this enrollment.
//   - Rating is only meaningful once Completed is true.
type Enrollment struct {
	EnrollmentID   uuid.UUID  `json:"enrollmentId"`
	StudentID      uuid.UUID  `json:"studentId"`
	CourseID       uuid.UUID  `json:"courseId"`
	EnrollmentDate time.Time  `json:"enrollmentDate"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
	TestScore      *int       `json:"testScore,omitempty"`
	TotalQuestions *int       `json:"totalQuestions,omitempty"`
	Percentage     *int       `json:"percentage,omitempty"`
	Passed         *bool      `json:"passed,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Feedback       *string    `json:"feedback,omitempty"`

	// Course is the embedded snapshot attached during store enrichment.
	// It is an optimization, not part of the upstream record.
	Course *Course `json:"course,omitempty"`
}

// HasPassed reports whether the enrollment carries an explicit passing
// test outcome. A completed enrollment with no recorded test stays false —
// certificate eligibility is strict by default.
func (e *Enrollment) HasPassed() bool {
	return e.Passed != nil && *e.Passed
}

// EnrollRequest is the payload for enrolling the authenticated student.
type EnrollRequest struct {
	CourseID uuid.UUID `json:"courseId" binding:"required"`
}

// CompleteRequest is the body of the platform's overloaded
// PUT /enrollments/{id}/complete endpoint. Every field is optional: the
// same endpoint serves plain completion and attaching test or rating
// metadata, so only non-nil fields are applied upstream.
type CompleteRequest struct {
	Completed      *bool      `json:"completed,omitempty"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
	TestScore      *int       `json:"testScore,omitempty"`
	TotalQuestions *int       `json:"totalQuestions,omitempty"`
	Percentage     *int       `json:"percentage,omitempty"`
	Passed         *bool      `json:"passed,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Feedback       *string    `json:"feedback,omitempty"`
}
