package upstream

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// testResultEnvelope is the wire shape of the platform's test-results
// sub-API.
type testResultEnvelope struct {
	Success    bool              `json:"success"`
	TestResult *model.TestResult `json:"testResult"`
}

// SaveTestResult persists one durable test submission. Retakes append new
// records; nothing is overwritten.
func (c *Client) SaveTestResult(ctx context.Context, tr *model.TestResult) error {
	return c.do(ctx, http.MethodPost, "/test-results", tr, nil)
}

// GetTestResultByEnrollment returns the latest test result for the
// enrollment, or ErrNotFound when none was ever recorded.
func (c *Client) GetTestResultByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*model.TestResult, error) {
	var env testResultEnvelope
	if err := c.do(ctx, http.MethodGet, "/test-results/enrollment/"+enrollmentID.String(), nil, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.TestResult == nil {
		return nil, ErrNotFound
	}
	return env.TestResult, nil
}
