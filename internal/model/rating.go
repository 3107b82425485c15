package model

import (
	"time"

	"github.com/google/uuid"
)

// Rating is the platform's record of one student rating for a course.
// Submitting one triggers the backend-side aggregate recompute.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"studentId"`
	CourseID  uuid.UUID `json:"courseId"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RateRequest is the payload for rating a completed enrollment.
type RateRequest struct {
	Stars   int    `json:"stars" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=2000"`
}
