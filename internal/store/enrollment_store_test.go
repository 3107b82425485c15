package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// fakePlatform serves the minimal slice of the platform API the store
// talks to. brokenCourses answer 500 on their detail endpoint.
type fakePlatform struct {
	enrollments   map[uuid.UUID][]model.Enrollment
	courses       map[uuid.UUID]model.Course
	brokenCourses map[uuid.UUID]bool
	listCalls     atomic.Int64
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /enrollments/student/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		out := f.enrollments[id]
		if out == nil {
			out = []model.Enrollment{}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if f.brokenCourses[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		course, ok := f.courses[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(course)
	})
	return mux
}

func newStoreFixture(t *testing.T, f *fakePlatform) (*EnrollmentStore, func()) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	client := upstream.New(srv.URL, 5*time.Second, zerolog.Nop())
	return New(client, zerolog.Nop()), srv.Close
}

func seedEnrollments(f *fakePlatform, studentID uuid.UUID, n int) []model.Enrollment {
	entries := make([]model.Enrollment, n)
	for i := range entries {
		courseID := uuid.New()
		f.courses[courseID] = model.Course{
			ID:       courseID,
			Title:    "Course " + strings.Repeat("I", i+1),
			Category: model.CategoryBackend,
		}
		entries[i] = model.Enrollment{
			EnrollmentID:   uuid.New(),
			StudentID:      studentID,
			CourseID:       courseID,
			EnrollmentDate: time.Now(),
		}
	}
	f.enrollments[studentID] = entries
	return entries
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		enrollments:   make(map[uuid.UUID][]model.Enrollment),
		courses:       make(map[uuid.UUID]model.Course),
		brokenCourses: make(map[uuid.UUID]bool),
	}
}

func TestLoadPreservesOrderAndEnriches(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	seeded := seedEnrollments(f, studentID, 8)

	st, done := newStoreFixture(t, f)
	defer done()

	got, err := st.Load(context.Background(), studentID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(seeded) {
		t.Fatalf("loaded %d entries, want %d", len(got), len(seeded))
	}
	for i, e := range got {
		if e.EnrollmentID != seeded[i].EnrollmentID {
			t.Fatalf("entry %d out of order", i)
		}
		if e.Course == nil {
			t.Fatalf("entry %d missing course snapshot", i)
		}
		if e.Course.Title != f.courses[e.CourseID].Title {
			t.Fatalf("entry %d course title = %q", i, e.Course.Title)
		}
	}
}

func TestLoadDegradesBrokenCourseToPlaceholder(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	seeded := seedEnrollments(f, studentID, 3)
	f.brokenCourses[seeded[1].CourseID] = true

	st, done := newStoreFixture(t, f)
	defer done()

	got, err := st.Load(context.Background(), studentID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got[1].Course.Title != model.PlaceholderCourseTitle {
		t.Fatalf("broken course title = %q, want placeholder", got[1].Course.Title)
	}
	// Neighbors are unaffected.
	if got[0].Course.Title == model.PlaceholderCourseTitle || got[2].Course.Title == model.PlaceholderCourseTitle {
		t.Fatal("healthy courses were degraded too")
	}
}

func TestLoadReplacesSnapshot(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	first := seedEnrollments(f, studentID, 3)

	st, done := newStoreFixture(t, f)
	defer done()

	if _, err := st.Load(context.Background(), studentID); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	// The platform now reports a different set; the old entries must be gone.
	second := seedEnrollments(f, studentID, 2)
	if _, err := st.Load(context.Background(), studentID); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if got := st.List(studentID); len(got) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(got))
	}
	if _, ok := st.Get(first[0].EnrollmentID); ok {
		t.Fatal("stale enrollment still resolvable after reload")
	}
	if _, ok := st.Get(second[0].EnrollmentID); !ok {
		t.Fatal("fresh enrollment not resolvable after reload")
	}
}

func TestRefreshRequiresPriorLoad(t *testing.T) {
	f := newFakePlatform()
	st, done := newStoreFixture(t, f)
	defer done()

	if err := st.Refresh(context.Background(), uuid.New()); err != ErrNotLoaded {
		t.Fatalf("Refresh without Load = %v, want ErrNotLoaded", err)
	}
}

func TestFindByCourse(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	seeded := seedEnrollments(f, studentID, 3)

	st, done := newStoreFixture(t, f)
	defer done()

	if _, err := st.Load(context.Background(), studentID); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if e, ok := st.FindByCourse(studentID, seeded[2].CourseID); !ok || e.EnrollmentID != seeded[2].EnrollmentID {
		t.Fatal("FindByCourse missed a cached enrollment")
	}
	if _, ok := st.FindByCourse(studentID, uuid.New()); ok {
		t.Fatal("FindByCourse matched an unknown course")
	}
	if _, ok := st.FindByCourse(uuid.New(), seeded[0].CourseID); ok {
		t.Fatal("FindByCourse leaked across students")
	}
}

func TestApplyCompletionPatchesEntry(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	seeded := seedEnrollments(f, studentID, 1)

	st, done := newStoreFixture(t, f)
	defer done()

	if _, err := st.Load(context.Background(), studentID); err != nil {
		t.Fatalf("Load: %v", err)
	}

	completed := true
	passed := true
	score := 7
	total := 10
	percentage := 70
	now := time.Now()
	st.ApplyCompletion(seeded[0].EnrollmentID, &model.CompleteRequest{
		Completed:      &completed,
		CompletionDate: &now,
		TestScore:      &score,
		TotalQuestions: &total,
		Percentage:     &percentage,
		Passed:         &passed,
	})

	e, ok := st.Get(seeded[0].EnrollmentID)
	if !ok {
		t.Fatal("entry vanished")
	}
	if !e.Completed || !e.HasPassed() {
		t.Fatalf("completion not applied: %+v", e)
	}
	if e.Percentage == nil || *e.Percentage != 70 {
		t.Fatal("percentage not applied")
	}

	// Nil fields leave prior values untouched.
	rating := 5
	st.ApplyCompletion(seeded[0].EnrollmentID, &model.CompleteRequest{Rating: &rating})
	e, _ = st.Get(seeded[0].EnrollmentID)
	if !e.Completed || e.Rating == nil || *e.Rating != 5 {
		t.Fatalf("partial patch clobbered entry: %+v", e)
	}
}

func TestRemoveReindexes(t *testing.T) {
	f := newFakePlatform()
	studentID := uuid.New()
	seeded := seedEnrollments(f, studentID, 3)

	st, done := newStoreFixture(t, f)
	defer done()

	if _, err := st.Load(context.Background(), studentID); err != nil {
		t.Fatalf("Load: %v", err)
	}

	st.Remove(seeded[1].EnrollmentID)

	got := st.List(studentID)
	if len(got) != 2 {
		t.Fatalf("list has %d entries after remove, want 2", len(got))
	}
	if got[0].EnrollmentID != seeded[0].EnrollmentID || got[1].EnrollmentID != seeded[2].EnrollmentID {
		t.Fatal("remove broke ordering")
	}
	if _, ok := st.Get(seeded[1].EnrollmentID); ok {
		t.Fatal("removed enrollment still resolvable")
	}
	// The survivors stay resolvable through the rebuilt index.
	if _, ok := st.Get(seeded[2].EnrollmentID); !ok {
		t.Fatal("surviving enrollment lost its index entry")
	}
}
