package model

import (
	"time"

	"github.com/google/uuid"
)

// TestResult is the durable record of one test submission. Results are
// never mutated, only superseded: a retake creates a new record, and
// eligibility reads the latest one for the enrollment.
type TestResult struct {
	EnrollmentID   uuid.UUID `json:"enrollmentId"`
	CourseID       uuid.UUID `json:"courseId"`
	StudentID      uuid.UUID `json:"studentId"`
	TestScore      int       `json:"testScore"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	Passed         bool      `json:"passed"`
	SubmittedAt    time.Time `json:"submittedAt"`
}
