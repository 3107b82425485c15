package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// ErrNotLoaded is returned by Refresh when no snapshot was ever loaded for
// the student.
var ErrNotLoaded = errors.New("store: no snapshot loaded for student")

// snapshot is one student's cached enrollment list. The slice preserves
// the upstream list order; the index maps enrollmentID to slice position.
type snapshot struct {
	entries []model.Enrollment
	index   map[uuid.UUID]int
}

// EnrollmentStore caches each student's enrollments enriched with course
// snapshots. It is the single source of truth the handlers read from;
// only the coordinators and the enroll/unenroll path mutate it, and every
// mutating flow re-synchronizes with the platform via Refresh.
//
// Load fully replaces a student's snapshot (last-load-wins, no merge).
// Callers must not interleave two concurrent refreshes for the same
// student: the lock keeps the map consistent but cannot decide which of
// two racing loads reflects newer backend truth.
type EnrollmentStore struct {
	mu        sync.RWMutex
	upstream  *upstream.Client
	log       zerolog.Logger
	snapshots map[uuid.UUID]*snapshot
	// owner maps enrollmentID to studentID for cross-snapshot lookups.
	owner map[uuid.UUID]uuid.UUID
}

// New creates an empty EnrollmentStore backed by the given upstream client.
func New(client *upstream.Client, log zerolog.Logger) *EnrollmentStore {
	return &EnrollmentStore{
		upstream:  client,
		log:       log.With().Str("component", "enrollment_store").Logger(),
		snapshots: make(map[uuid.UUID]*snapshot),
		owner:     make(map[uuid.UUID]uuid.UUID),
	}
}

// Load fetches the student's enrollments and concurrently enriches each
// one with its course snapshot. A failed course fetch degrades that
// single entry to the "Course not available" placeholder instead of
// failing the whole load. The returned slice preserves the upstream
// enrollment order regardless of fetch completion order.
func (s *EnrollmentStore) Load(ctx context.Context, studentID uuid.UUID) ([]model.Enrollment, error) {
	raw, err := s.upstream.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	courses := make([]*model.Course, len(raw))
	var wg sync.WaitGroup
	for i := range raw {
		wg.Add(1)
		go func(i int, courseID uuid.UUID) {
			defer wg.Done()
			course, err := s.upstream.GetCourse(ctx, courseID)
			if err != nil {
				s.log.Warn().Err(err).
					Stringer("course_id", courseID).
					Msg("Course detail fetch failed, using placeholder")
				courses[i] = model.PlaceholderCourse(courseID)
				return
			}
			courses[i] = course
		}(i, raw[i].CourseID)
	}
	wg.Wait()

	for i := range raw {
		raw[i].Course = courses[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(studentID, raw)
	return s.listLocked(studentID), nil
}

// Refresh re-runs Load for a student that already has a snapshot. Used
// after every mutating coordinator operation to reconcile with backend
// truth.
func (s *EnrollmentStore) Refresh(ctx context.Context, studentID uuid.UUID) error {
	s.mu.RLock()
	_, ok := s.snapshots[studentID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotLoaded
	}
	_, err := s.Load(ctx, studentID)
	return err
}

// List returns a copy of the student's cached enrollments in load order.
func (s *EnrollmentStore) List(studentID uuid.UUID) []model.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(studentID)
}

// Get returns one cached enrollment by id, regardless of which student's
// snapshot holds it.
func (s *EnrollmentStore) Get(enrollmentID uuid.UUID) (model.Enrollment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studentID, ok := s.owner[enrollmentID]
	if !ok {
		return model.Enrollment{}, false
	}
	snap := s.snapshots[studentID]
	i, ok := snap.index[enrollmentID]
	if !ok {
		return model.Enrollment{}, false
	}
	return snap.entries[i], true
}

// FindByCourse returns the student's cached enrollment for a course, used
// as the duplicate-enrollment guard before calling upstream.
func (s *EnrollmentStore) FindByCourse(studentID, courseID uuid.UUID) (model.Enrollment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[studentID]
	if !ok {
		return model.Enrollment{}, false
	}
	for _, e := range snap.entries {
		if e.CourseID == courseID {
			return e, true
		}
	}
	return model.Enrollment{}, false
}

// ApplyCompletion patches one cached entry with confirmed completion or
// test fields. It is a local post-confirmation update; it does not
// re-fetch anything.
func (s *EnrollmentStore) ApplyCompletion(enrollmentID uuid.UUID, fields *model.CompleteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(enrollmentID)
	if e == nil {
		return
	}
	if fields.Completed != nil {
		e.Completed = *fields.Completed
	}
	if fields.CompletionDate != nil {
		e.CompletionDate = fields.CompletionDate
	}
	if fields.TestScore != nil {
		e.TestScore = fields.TestScore
	}
	if fields.TotalQuestions != nil {
		e.TotalQuestions = fields.TotalQuestions
	}
	if fields.Percentage != nil {
		e.Percentage = fields.Percentage
	}
	if fields.Passed != nil {
		e.Passed = fields.Passed
	}
	if fields.Rating != nil {
		e.Rating = fields.Rating
	}
	if fields.Feedback != nil {
		e.Feedback = fields.Feedback
	}
}

// SetCourse replaces the embedded course snapshot on one entry, used after
// a rating submission to pick up the recomputed aggregate.
func (s *EnrollmentStore) SetCourse(enrollmentID uuid.UUID, course *model.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entryLocked(enrollmentID); e != nil {
		e.Course = course
	}
}

// Remove drops an entry after a confirmed unenroll.
func (s *EnrollmentStore) Remove(enrollmentID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	studentID, ok := s.owner[enrollmentID]
	if !ok {
		return
	}
	snap := s.snapshots[studentID]
	i, ok := snap.index[enrollmentID]
	if !ok {
		return
	}

	snap.entries = append(snap.entries[:i], snap.entries[i+1:]...)
	delete(snap.index, enrollmentID)
	delete(s.owner, enrollmentID)
	for j := i; j < len(snap.entries); j++ {
		snap.index[snap.entries[j].EnrollmentID] = j
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers (callers hold the lock)
// ────────────────────────────────────────────────────────────────────────────

func (s *EnrollmentStore) replaceLocked(studentID uuid.UUID, entries []model.Enrollment) {
	if old, ok := s.snapshots[studentID]; ok {
		for id := range old.index {
			delete(s.owner, id)
		}
	}

	snap := &snapshot{
		entries: entries,
		index:   make(map[uuid.UUID]int, len(entries)),
	}
	for i, e := range entries {
		snap.index[e.EnrollmentID] = i
		s.owner[e.EnrollmentID] = studentID
	}
	s.snapshots[studentID] = snap
}

func (s *EnrollmentStore) listLocked(studentID uuid.UUID) []model.Enrollment {
	snap, ok := s.snapshots[studentID]
	if !ok {
		return nil
	}
	out := make([]model.Enrollment, len(snap.entries))
	copy(out, snap.entries)
	return out
}

func (s *EnrollmentStore) entryLocked(enrollmentID uuid.UUID) *model.Enrollment {
	studentID, ok := s.owner[enrollmentID]
	if !ok {
		return nil
	}
	snap := s.snapshots[studentID]
	i, ok := snap.index[enrollmentID]
	if !ok {
		return nil
	}
	return &snap.entries[i]
}
