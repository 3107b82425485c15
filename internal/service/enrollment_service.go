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

// Domain errors.
var (
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrNotOwner           = errors.New("enrollment belongs to another student")
)

// EnrollmentService covers the plain lifecycle operations: listing with
// cache load, enroll, unenroll, and the instructor roster. Completion is
// the CompletionService's job; listing only triggers its self-heal scan.
type EnrollmentService struct {
	upstream   *upstream.Client
	store      *store.EnrollmentStore
	completion *CompletionService
	log        zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(client *upstream.Client, st *store.EnrollmentStore, completion *CompletionService, log zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		upstream:   client,
		store:      st,
		completion: completion,
		log:        log.With().Str("component", "enrollment_service").Logger(),
	}
}

// List loads the student's enrollments into the store and returns them.
// Every incomplete entry is offered to the self-heal promotion: a durable
// passing test result without local completion is the footprint of a
// prior partial failure, and the snapshot alone cannot prove its absence,
// so the check cannot gate on a local passed flag. A promotion error only
// logs — the listing itself still succeeds.
func (s *EnrollmentService) List(ctx context.Context, studentID uuid.UUID) ([]model.Enrollment, error) {
	entries, err := s.store.Load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	healed := false
	for _, e := range entries {
		if e.Completed {
			continue
		}
		promoted, err := s.completion.PromoteIfEligible(ctx, e)
		if err != nil {
			s.log.Warn().Err(err).
				Stringer("enrollment_id", e.EnrollmentID).
				Msg("Self-heal promotion failed")
			continue
		}
		healed = healed || promoted != nil
	}

	if healed {
		if refreshed, err := s.store.Load(ctx, studentID); err == nil {
			entries = refreshed
		}
	}
	return entries, nil
}

// Enroll creates a new enrollment for the student. The cached snapshot is
// consulted first so an obvious duplicate never reaches the platform; the
// platform still enforces the rule authoritatively.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	if _, exists := s.store.FindByCourse(studentID, courseID); exists {
		return nil, ErrAlreadyEnrolled
	}

	created, err := s.upstream.Enroll(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Refresh(ctx, studentID); err != nil && !errors.Is(err, store.ErrNotLoaded) {
		s.log.Warn().Err(err).Stringer("student_id", studentID).Msg("Post-enroll refresh failed")
	}
	return created, nil
}

// Unenroll hard-deletes the enrollment upstream and drops it from the
// cache. Only the owning student may unenroll.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, enrollmentID uuid.UUID) error {
	cached, ok := s.store.Get(enrollmentID)
	if !ok {
		return ErrEnrollmentNotFound
	}
	if cached.StudentID != studentID {
		return ErrNotOwner
	}

	if err := s.upstream.Unenroll(ctx, enrollmentID); err != nil {
		return err
	}
	s.store.Remove(enrollmentID)
	return nil
}

// Roster returns the enrollments of one course for the instructor view.
// Read-through only: rosters are not cached in the store.
func (s *EnrollmentService) Roster(ctx context.Context, courseID uuid.UUID) ([]model.Enrollment, error) {
	return s.upstream.ListByCourse(ctx, courseID)
}

// Find returns the cached enrollment, loading the student's snapshot
// first if needed.
func (s *EnrollmentService) Find(ctx context.Context, studentID, enrollmentID uuid.UUID) (model.Enrollment, error) {
	if e, ok := s.store.Get(enrollmentID); ok {
		if e.StudentID != studentID {
			return model.Enrollment{}, ErrNotOwner
		}
		return e, nil
	}

	if _, err := s.store.Load(ctx, studentID); err != nil {
		return model.Enrollment{}, err
	}
	e, ok := s.store.Get(enrollmentID)
	if !ok {
		return model.Enrollment{}, ErrEnrollmentNotFound
	}
	if e.StudentID != studentID {
		return model.Enrollment{}, ErrNotOwner
	}
	return e, nil
}
