package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
)

func enrollmentFixture(t *testing.T) (*fixture, *EnrollmentService) {
	t.Helper()
	f := newFixture(t)
	completion := NewCompletionService(f.client, f.store, f.queue, zerolog.Nop())
	return f, NewEnrollmentService(f.client, f.store, completion, zerolog.Nop())
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	f, svc := enrollmentFixture(t)
	studentID := newStudentID()
	existing := f.platform.addEnrollment(studentID)
	f.loadStudent(t, studentID)

	if _, err := svc.Enroll(context.Background(), studentID, existing.CourseID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestEnrollCreatesAndRefreshes(t *testing.T) {
	f, svc := enrollmentFixture(t)
	studentID := newStudentID()
	f.platform.addEnrollment(studentID)
	f.loadStudent(t, studentID)

	courseID := uuid.New()
	f.platform.mu.Lock()
	f.platform.courses[courseID] = model.Course{ID: courseID, Title: "New Course", Category: model.CategoryDevops}
	f.platform.mu.Unlock()

	created, err := svc.Enroll(context.Background(), studentID, courseID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if created.CourseID != courseID || created.StudentID != studentID {
		t.Fatalf("created = %+v", created)
	}

	// The refreshed snapshot contains both enrollments.
	if got := len(f.store.List(studentID)); got != 2 {
		t.Fatalf("snapshot has %d entries, want 2", got)
	}
}

func TestUnenrollEnforcesOwnership(t *testing.T) {
	f, svc := enrollmentFixture(t)
	owner := newStudentID()
	enrollment := f.platform.addEnrollment(owner)
	f.loadStudent(t, owner)

	if err := svc.Unenroll(context.Background(), newStudentID(), enrollment.EnrollmentID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if err := svc.Unenroll(context.Background(), owner, uuid.New()); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("err = %v, want ErrEnrollmentNotFound", err)
	}

	if err := svc.Unenroll(context.Background(), owner, enrollment.EnrollmentID); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	if _, ok := f.platform.enrollments[enrollment.EnrollmentID]; ok {
		t.Fatal("platform still holds the enrollment")
	}
	if _, ok := f.store.Get(enrollment.EnrollmentID); ok {
		t.Fatal("cache still holds the enrollment")
	}
}

func TestFindLoadsOnCacheMiss(t *testing.T) {
	f, svc := enrollmentFixture(t)
	studentID := newStudentID()
	enrollment := f.platform.addEnrollment(studentID)

	// No prior Load: Find must populate the snapshot itself.
	got, err := svc.Find(context.Background(), studentID, enrollment.EnrollmentID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.EnrollmentID != enrollment.EnrollmentID {
		t.Fatalf("found %s, want %s", got.EnrollmentID, enrollment.EnrollmentID)
	}

	if _, err := svc.Find(context.Background(), newStudentID(), enrollment.EnrollmentID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("cross-student Find = %v, want ErrNotOwner", err)
	}
}

func TestListSelfHealsPartialCompletions(t *testing.T) {
	f, svc := enrollmentFixture(t)
	studentID := newStudentID()
	enrollment := f.platform.addEnrollment(studentID)

	// Footprint of a previous partial failure: passing outcome recorded
	// on the enrollment, completion flag never set.
	passed := true
	percentage := 75
	enrollment.Passed = &passed
	enrollment.Percentage = &percentage

	entries, err := svc.List(context.Background(), studentID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("listed %d entries, want 1", len(entries))
	}
	if !entries[0].Completed {
		t.Fatal("self-heal promotion not reflected in the listing")
	}
	if !f.platform.enrollments[enrollment.EnrollmentID].Completed {
		t.Fatal("platform enrollment not promoted")
	}
}

func TestListSelfHealsFromDurableResultOnly(t *testing.T) {
	f, svc := enrollmentFixture(t)
	studentID := newStudentID()
	enrollment := f.platform.addEnrollment(studentID)

	// Harsher partial-failure footprint: the test result was saved but
	// the mark-complete call never landed, so the enrollment record
	// carries no passed flag at all. Only the durable result proves the
	// pass.
	f.platform.testResults[enrollment.EnrollmentID] = append(
		f.platform.testResults[enrollment.EnrollmentID],
		passingTestResult(enrollment),
	)

	entries, err := svc.List(context.Background(), studentID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("listed %d entries, want 1", len(entries))
	}
	if !entries[0].Completed {
		t.Fatal("durable passing result not promoted on load")
	}
	if f.platform.completeCalls != 1 {
		t.Fatalf("completeCalls = %d, want 1", f.platform.completeCalls)
	}
}
