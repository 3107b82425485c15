package model

import "github.com/google/uuid"

// CourseCategory enumerates the catalog categories the platform recognizes.
type CourseCategory string

const (
	CategoryBackend       CourseCategory = "BACKEND"
	CategoryFrontend      CourseCategory = "FRONTEND"
	CategoryCybersecurity CourseCategory = "CYBERSECURITY"
	CategoryDatabase      CourseCategory = "DATABASE"
	CategoryMobile        CourseCategory = "MOBILE"
	CategoryDevops        CourseCategory = "DEVOPS"
)

// PlaceholderCourseTitle is substituted when a course detail fetch fails
// during enrollment enrichment, so a single broken course never takes the
// whole enrollment list down with it.
const PlaceholderCourseTitle = "Course not available"

// CourseRating is the backend-computed aggregate. The gateway never derives
// the mean locally — it always re-fetches after a rating is submitted.
type CourseRating struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Course is a read-only snapshot owned by the platform API.
type Course struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Category       CourseCategory `json:"category"`
	Price          float64        `json:"price"`
	InstructorID   uuid.UUID      `json:"instructorId"`
	InstructorName string         `json:"instructorName,omitempty"`
	Rating         CourseRating   `json:"rating"`
}

// PlaceholderCourse builds the degraded stand-in used when the course
// detail lookup for an enrollment fails.
func PlaceholderCourse(id uuid.UUID) *Course {
	return &Course{ID: id, Title: PlaceholderCourseTitle}
}
