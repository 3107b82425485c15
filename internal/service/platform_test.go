package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/store"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

// fakePlatform is an in-memory stand-in for the course platform, with
// failure switches per endpoint so the coordinator's partial-failure
// policy can be exercised step by step.
type fakePlatform struct {
	mu sync.Mutex

	enrollments map[uuid.UUID]*model.Enrollment
	courses     map[uuid.UUID]model.Course
	testResults map[uuid.UUID][]model.TestResult
	ratings     []model.Rating

	failSaveResult bool
	failComplete   bool

	completeCalls int
	listCalls     int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		enrollments: make(map[uuid.UUID]*model.Enrollment),
		courses:     make(map[uuid.UUID]model.Course),
		testResults: make(map[uuid.UUID][]model.TestResult),
	}
}

func (f *fakePlatform) addEnrollment(studentID uuid.UUID) *model.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()

	courseID := uuid.New()
	f.courses[courseID] = model.Course{ID: courseID, Title: "Fake Course", Category: model.CategoryBackend}
	e := &model.Enrollment{
		EnrollmentID:   uuid.New(),
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: time.Now(),
	}
	f.enrollments[e.EnrollmentID] = e
	return e
}

func (f *fakePlatform) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /enrollments/student/{id}", func(w http.ResponseWriter, r *http.Request) {
		studentID, _ := uuid.Parse(r.PathValue("id"))
		f.mu.Lock()
		f.listCalls++
		out := []model.Enrollment{}
		for _, e := range f.enrollments {
			if e.StudentID == studentID {
				out = append(out, *e)
			}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("GET /enrollments/course/{id}", func(w http.ResponseWriter, r *http.Request) {
		courseID, _ := uuid.Parse(r.PathValue("id"))
		f.mu.Lock()
		out := []model.Enrollment{}
		for _, e := range f.enrollments {
			if e.CourseID == courseID {
				out = append(out, *e)
			}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("POST /enrollments/enroll", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID uuid.UUID `json:"studentId"`
			CourseID  uuid.UUID `json:"courseId"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		for _, e := range f.enrollments {
			if e.StudentID == req.StudentID && e.CourseID == req.CourseID {
				http.Error(w, "already enrolled", http.StatusConflict)
				return
			}
		}
		e := &model.Enrollment{
			EnrollmentID:   uuid.New(),
			StudentID:      req.StudentID,
			CourseID:       req.CourseID,
			EnrollmentDate: time.Now(),
		}
		f.enrollments[e.EnrollmentID] = e
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(e)
	})

	mux.HandleFunc("PUT /enrollments/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.completeCalls++
		if f.failComplete {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}

		id, _ := uuid.Parse(r.PathValue("id"))
		e, ok := f.enrollments[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req model.CompleteRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Completed != nil {
			e.Completed = *req.Completed
		}
		if req.CompletionDate != nil {
			e.CompletionDate = req.CompletionDate
		}
		if req.TestScore != nil {
			e.TestScore = req.TestScore
		}
		if req.TotalQuestions != nil {
			e.TotalQuestions = req.TotalQuestions
		}
		if req.Percentage != nil {
			e.Percentage = req.Percentage
		}
		if req.Passed != nil {
			e.Passed = req.Passed
		}
		if req.Rating != nil {
			e.Rating = req.Rating
		}
		if req.Feedback != nil {
			e.Feedback = req.Feedback
		}
		json.NewEncoder(w).Encode(e)
	})

	mux.HandleFunc("DELETE /enrollments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := uuid.Parse(r.PathValue("id"))
		f.mu.Lock()
		_, ok := f.enrollments[id]
		delete(f.enrollments, id)
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := uuid.Parse(r.PathValue("id"))
		f.mu.Lock()
		course, ok := f.courses[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(course)
	})

	mux.HandleFunc("POST /test-results", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failSaveResult {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var tr model.TestResult
		json.NewDecoder(r.Body).Decode(&tr)
		f.testResults[tr.EnrollmentID] = append(f.testResults[tr.EnrollmentID], tr)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(tr)
	})

	mux.HandleFunc("GET /test-results/enrollment/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := uuid.Parse(r.PathValue("id"))
		f.mu.Lock()
		results := f.testResults[id]
		f.mu.Unlock()
		if len(results) == 0 {
			json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "testResult": results[len(results)-1]})
	})

	mux.HandleFunc("POST /ratings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID uuid.UUID `json:"studentId"`
			CourseID  uuid.UUID `json:"courseId"`
			Stars     int       `json:"stars"`
			Comment   string    `json:"comment"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		rating := model.Rating{
			ID:        uuid.New(),
			StudentID: req.StudentID,
			CourseID:  req.CourseID,
			Stars:     req.Stars,
			Comment:   req.Comment,
			CreatedAt: time.Now(),
		}
		f.ratings = append(f.ratings, rating)
		course := f.courses[req.CourseID]
		course.Rating = model.CourseRating{Mean: float64(req.Stars), Count: course.Rating.Count + 1}
		f.courses[req.CourseID] = course
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rating)
	})

	return mux
}

// capturedQueue records enqueued promotion payloads.
type capturedQueue struct {
	mu       sync.Mutex
	payloads []PromotionPayload
}

func (q *capturedQueue) Enqueue(ctx context.Context, p PromotionPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, p)
	return nil
}

func (q *capturedQueue) all() []PromotionPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PromotionPayload(nil), q.payloads...)
}

type fixture struct {
	platform *fakePlatform
	client   *upstream.Client
	store    *store.EnrollmentStore
	queue    *capturedQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	platform := newFakePlatform()
	srv := httptest.NewServer(platform.handler())
	t.Cleanup(srv.Close)

	client := upstream.New(srv.URL, 5*time.Second, zerolog.Nop())
	return &fixture{
		platform: platform,
		client:   client,
		store:    store.New(client, zerolog.Nop()),
		queue:    &capturedQueue{},
	}
}

func newStudentID() uuid.UUID {
	return uuid.New()
}

func passingTestResult(e *model.Enrollment) model.TestResult {
	return model.TestResult{
		EnrollmentID:   e.EnrollmentID,
		CourseID:       e.CourseID,
		StudentID:      e.StudentID,
		TestScore:      8,
		TotalQuestions: 10,
		Percentage:     80,
		Passed:         true,
		SubmittedAt:    time.Now(),
	}
}

// loadStudent primes the store snapshot the way a real request would.
func (f *fixture) loadStudent(t *testing.T, studentID uuid.UUID) {
	t.Helper()
	if _, err := f.store.Load(context.Background(), studentID); err != nil {
		t.Fatalf("store load: %v", err)
	}
}
