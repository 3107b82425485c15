package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/quiz"
	"github.com/coursiva/enroll-gateway/internal/store"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// ErrMarkCompleteFailed is returned when the student passed but the
// platform refused or failed the mark-complete call. The student does not
// get credit yet; the attempt stays retryable and a promotion payload is
// queued for the background worker.
var ErrMarkCompleteFailed = errors.New("mark complete failed")

// PromotionPayload is one deferred mark-complete retry, drained by the
// promotion worker.
type PromotionPayload struct {
	EnrollmentID   uuid.UUID `json:"enrollmentId"`
	StudentID      uuid.UUID `json:"studentId"`
	CourseID       uuid.UUID `json:"courseId"`
	TestScore      int       `json:"testScore"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	Attempts       int       `json:"attempts"`
}

// PromotionQueue hands failed mark-complete calls to a background retry
// path. Enqueue is best effort: a queue failure is logged, never fatal.
type PromotionQueue interface {
	Enqueue(ctx context.Context, p PromotionPayload) error
}

// CompletionOutcome reports what the multi-step completion sequence
// actually achieved. Partial results are explicit, never swallowed.
type CompletionOutcome struct {
	Result      quiz.ScoreResult  `json:"result"`
	ResultSaved bool              `json:"resultSaved"`
	Completed   bool              `json:"completed"`
	Enrollment  *model.Enrollment `json:"enrollment,omitempty"`
	Partial     bool              `json:"partialFailure"`
}

// CompletionService sequences the side effects of a finished test:
// persist the durable TestResult, mark the enrollment complete when the
// outcome passes, then refresh the cached enrollments. Each step fails
// independently and the joint policy lives here, nowhere else.
type CompletionService struct {
	upstream *upstream.Client
	store    *store.EnrollmentStore
	queue    PromotionQueue
	log      zerolog.Logger
}

// NewCompletionService creates a CompletionService. queue may be nil in
// tests; deferred promotion is then skipped.
func NewCompletionService(client *upstream.Client, st *store.EnrollmentStore, queue PromotionQueue, log zerolog.Logger) *CompletionService {
	return &CompletionService{
		upstream: client,
		store:    st,
		queue:    queue,
		log:      log.With().Str("component", "completion_service").Logger(),
	}
}

// CompleteAfterTest runs the three-step sequence for one submitted test.
//
//  1. Save the TestResult. Failure is logged and reported as a partial
//     outcome but never blocks the next steps: the score record is
//     best-effort telemetry and completion is re-derivable from step 2.
//  2. If the outcome passed and the enrollment is not yet completed,
//     mark it complete upstream. Failure here is the caller's error —
//     the student gets no credit — but step 1 is not rolled back.
//  3. Always refresh the student's cached enrollments, even after
//     failures, so the UI never shows confidently stale state.
//
// There is no automatic retry across steps; the caller decides whether
// to resubmit, which may legitimately create a duplicate historical
// TestResult.
func (s *CompletionService) CompleteAfterTest(ctx context.Context, e model.Enrollment, result quiz.ScoreResult) (*CompletionOutcome, error) {
	outcome := &CompletionOutcome{Result: result, ResultSaved: true}

	// Step 1: durable test result.
	now := time.Now()
	tr := &model.TestResult{
		EnrollmentID:   e.EnrollmentID,
		CourseID:       e.CourseID,
		StudentID:      e.StudentID,
		TestScore:      result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Score,
		Passed:         result.Passed,
		SubmittedAt:    now,
	}
	if err := s.upstream.SaveTestResult(ctx, tr); err != nil {
		s.log.Warn().Err(err).
			Stringer("enrollment_id", e.EnrollmentID).
			Msg("Test result save failed, continuing")
		outcome.ResultSaved = false
		outcome.Partial = true
	}

	// Step 2: completion credit.
	var stepErr error
	if result.Passed && !e.Completed {
		updated, err := s.markComplete(ctx, e.EnrollmentID, result.CorrectCount, result.TotalQuestions, result.Score)
		if err != nil {
			s.log.Error().Err(err).
				Stringer("enrollment_id", e.EnrollmentID).
				Msg("Mark complete failed")
			s.enqueuePromotion(ctx, e, result)
			stepErr = fmt.Errorf("%w: %v", ErrMarkCompleteFailed, err)
		} else {
			outcome.Completed = true
			outcome.Enrollment = updated
		}
	} else if e.Completed {
		outcome.Completed = true
	}

	// Step 3: reconcile the cache, regardless of what happened above.
	if err := s.store.Refresh(ctx, e.StudentID); err != nil {
		s.log.Warn().Err(err).
			Stringer("student_id", e.StudentID).
			Msg("Post-completion refresh failed")
		outcome.Partial = true
	}

	return outcome, stepErr
}

// PromoteIfEligible self-heals an enrollment whose durable test result
// says passed while the enrollment itself was never marked complete —
// the footprint of a prior partial failure. Returns the promoted
// enrollment record, with its score fields, or nil when no promotion
// applied.
func (s *CompletionService) PromoteIfEligible(ctx context.Context, e model.Enrollment) (*model.Enrollment, error) {
	if e.Completed {
		return nil, nil
	}

	passed := e.HasPassed()
	var percentage, score, total int
	if e.Percentage != nil {
		percentage = *e.Percentage
	}
	if e.TestScore != nil {
		score = *e.TestScore
	}
	if e.TotalQuestions != nil {
		total = *e.TotalQuestions
	}

	if !passed {
		tr, err := s.upstream.GetTestResultByEnrollment(ctx, e.EnrollmentID)
		if err != nil {
			if errors.Is(err, upstream.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if !tr.Passed {
			return nil, nil
		}
		percentage = tr.Percentage
		score = tr.TestScore
		total = tr.TotalQuestions
	}

	updated, err := s.markComplete(ctx, e.EnrollmentID, score, total, percentage)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Stringer("enrollment_id", e.EnrollmentID).
		Msg("Promoted enrollment with passing test result to completed")
	return updated, nil
}

// MarkCompleteManually completes an enrollment without any test outcome,
// the instructor override. No Passed flag is written, so the enrollment
// stays ineligible for a certificate.
func (s *CompletionService) MarkCompleteManually(ctx context.Context, enrollmentID uuid.UUID) (*model.Enrollment, error) {
	now := time.Now()
	completed := true
	req := &model.CompleteRequest{
		Completed:      &completed,
		CompletionDate: &now,
	}

	updated, err := s.upstream.Complete(ctx, enrollmentID, req)
	if err != nil {
		return nil, err
	}
	s.store.ApplyCompletion(enrollmentID, req)
	return updated, nil
}

func (s *CompletionService) markComplete(ctx context.Context, enrollmentID uuid.UUID, score, total, percentage int) (*model.Enrollment, error) {
	now := time.Now()
	completed := true
	passed := true
	req := &model.CompleteRequest{
		Completed:      &completed,
		CompletionDate: &now,
		TestScore:      &score,
		TotalQuestions: &total,
		Percentage:     &percentage,
		Passed:         &passed,
	}

	updated, err := s.upstream.Complete(ctx, enrollmentID, req)
	if err != nil {
		return nil, err
	}
	s.store.ApplyCompletion(enrollmentID, req)
	return updated, nil
}

func (s *CompletionService) enqueuePromotion(ctx context.Context, e model.Enrollment, result quiz.ScoreResult) {
	if s.queue == nil {
		return
	}
	p := PromotionPayload{
		EnrollmentID:   e.EnrollmentID,
		StudentID:      e.StudentID,
		CourseID:       e.CourseID,
		TestScore:      result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Score,
	}
	if err := s.queue.Enqueue(ctx, p); err != nil {
		s.log.Warn().Err(err).
			Stringer("enrollment_id", e.EnrollmentID).
			Msg("Promotion enqueue failed")
	}
}
