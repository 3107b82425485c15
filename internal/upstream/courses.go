package upstream

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// GetCourse fetches one course, including the backend-computed rating
// aggregate.
func (c *Client) GetCourse(ctx context.Context, courseID uuid.UUID) (*model.Course, error) {
	var course model.Course
	if err := c.do(ctx, http.MethodGet, "/courses/"+courseID.String(), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}
