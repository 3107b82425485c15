package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// Enroll creates a new enrollment for the student. The platform enforces
// the one-active-enrollment-per-pair rule; re-enrolling after unenroll
// produces a fresh record with a new id.
func (c *Client) Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	body := map[string]uuid.UUID{
		"studentId": studentID,
		"courseId":  courseID,
	}
	var e model.Enrollment
	if err := c.do(ctx, http.MethodPost, "/enrollments/enroll", body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByStudent returns the student's raw enrollments, without embedded
// course snapshots.
func (c *Client) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Enrollment, error) {
	var out []model.Enrollment
	if err := c.do(ctx, http.MethodGet, "/enrollments/student/"+studentID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCourse returns the roster of one course (instructor view).
func (c *Client) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Enrollment, error) {
	var out []model.Enrollment
	if err := c.do(ctx, http.MethodGet, "/enrollments/course/"+courseID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete calls the platform's overloaded complete/update endpoint and
// returns the updated enrollment. Only non-nil fields of req are applied.
func (c *Client) Complete(ctx context.Context, enrollmentID uuid.UUID, req *model.CompleteRequest) (*model.Enrollment, error) {
	var e model.Enrollment
	path := fmt.Sprintf("/enrollments/%s/complete", enrollmentID)
	if err := c.do(ctx, http.MethodPut, path, req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Unenroll hard-deletes an enrollment. The platform answers 204.
func (c *Client) Unenroll(ctx context.Context, enrollmentID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/enrollments/"+enrollmentID.String(), nil, nil)
}
