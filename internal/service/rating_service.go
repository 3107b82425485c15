package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/store"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// Rating errors.
var (
	ErrStarsOutOfRange = errors.New("stars must be between 1 and 5")
	ErrNotCompleted    = errors.New("enrollment is not completed")
)

// RatingOutcome reports a submitted rating plus the refreshed course
// aggregate. AggregateRefreshed is false when the re-fetch failed; the
// rating itself still stands.
type RatingOutcome struct {
	Rating             *model.Rating `json:"rating"`
	Course             *model.Course `json:"course,omitempty"`
	AggregateRefreshed bool          `json:"aggregateRefreshed"`
}

// RatingService submits ratings tied to completed enrollments and
// reconciles them into the cache. Rating never completes a course here:
// the legacy rate-to-complete coupling is deliberately not carried, so
// completion credit flows only through CompletionService.
type RatingService struct {
	upstream *upstream.Client
	store    *store.EnrollmentStore
	log      zerolog.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(client *upstream.Client, st *store.EnrollmentStore, log zerolog.Logger) *RatingService {
	return &RatingService{
		upstream: client,
		store:    st,
		log:      log.With().Str("component", "rating_service").Logger(),
	}
}

// Rate submits a rating for the student's completed enrollment. On
// success the cached entry is patched and the course is re-fetched for
// the backend-computed aggregate — the mean is never derived locally.
func (s *RatingService) Rate(ctx context.Context, e model.Enrollment, stars int, comment string) (*RatingOutcome, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrStarsOutOfRange
	}
	if !e.Completed {
		return nil, ErrNotCompleted
	}

	rating, err := s.upstream.SubmitRating(ctx, e.StudentID, e.CourseID, stars, comment)
	if err != nil {
		return nil, err
	}

	// Attach the rating to the enrollment record via the overloaded
	// complete/update endpoint, then mirror it locally.
	s.attachToEnrollment(ctx, e.EnrollmentID, stars, comment)

	outcome := &RatingOutcome{Rating: rating}
	course, err := s.upstream.GetCourse(ctx, e.CourseID)
	if err != nil {
		s.log.Warn().Err(err).
			Stringer("course_id", e.CourseID).
			Msg("Course aggregate refresh failed after rating")
		return outcome, nil
	}
	outcome.Course = course
	outcome.AggregateRefreshed = true
	s.store.SetCourse(e.EnrollmentID, course)
	return outcome, nil
}

func (s *RatingService) attachToEnrollment(ctx context.Context, enrollmentID uuid.UUID, stars int, comment string) {
	req := &model.CompleteRequest{Rating: &stars}
	if comment != "" {
		req.Feedback = &comment
	}
	if _, err := s.upstream.Complete(ctx, enrollmentID, req); err != nil {
		s.log.Warn().Err(err).
			Stringer("enrollment_id", enrollmentID).
			Msg("Attaching rating to enrollment failed")
		return
	}
	s.store.ApplyCompletion(enrollmentID, req)
}
