package upstream

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/model"
)

type ratingPayload struct {
	StudentID uuid.UUID `json:"studentId"`
	CourseID  uuid.UUID `json:"courseId"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
}

// SubmitRating posts a rating. The platform recomputes the course
// aggregate server-side; the gateway re-fetches the course afterwards
// rather than deriving the mean locally.
func (c *Client) SubmitRating(ctx context.Context, studentID, courseID uuid.UUID, stars int, comment string) (*model.Rating, error) {
	var r model.Rating
	body := ratingPayload{StudentID: studentID, CourseID: courseID, Stars: stars, Comment: comment}
	if err := c.do(ctx, http.MethodPost, "/ratings", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
