package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
)

func TestIsEligible(t *testing.T) {
	now := time.Now()
	passed := true
	failed := false

	tests := []struct {
		name string
		e    model.Enrollment
		want bool
	}{
		{"completed and passed", model.Enrollment{Completed: true, CompletionDate: &now, Passed: &passed}, true},
		{"completed without any test", model.Enrollment{Completed: true, CompletionDate: &now}, false},
		{"completed with failed test", model.Enrollment{Completed: true, CompletionDate: &now, Passed: &failed}, false},
		{"passed but not completed", model.Enrollment{Passed: &passed}, false},
		{"fresh enrollment", model.Enrollment{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(tt.e); got != tt.want {
				t.Errorf("IsEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func certFixture(t *testing.T) (*fixture, *CertificateService) {
	t.Helper()
	f := newFixture(t)
	completion := NewCompletionService(f.client, f.store, f.queue, zerolog.Nop())
	return f, NewCertificateService(completion, nil, zerolog.Nop())
}

func TestRenderEligibleEnrollment(t *testing.T) {
	f, svc := certFixture(t)
	enrollment := f.platform.addEnrollment(newStudentID())
	passed := true
	percentage := 85
	now := time.Now()
	enrollment.Completed = true
	enrollment.CompletionDate = &now
	enrollment.Passed = &passed
	enrollment.Percentage = &percentage
	f.loadStudent(t, enrollment.StudentID)

	cached, _ := f.store.Get(enrollment.EnrollmentID)
	pdf, err := svc.Render(context.Background(), cached, "Ada Lovelace")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF (first bytes: %q)", pdf[:min(8, len(pdf))])
	}
}

func TestRenderIneligibleEnrollment(t *testing.T) {
	f, svc := certFixture(t)
	enrollment := f.platform.addEnrollment(newStudentID())
	f.loadStudent(t, enrollment.StudentID)

	cached, _ := f.store.Get(enrollment.EnrollmentID)
	if _, err := svc.Render(context.Background(), cached, "Ada Lovelace"); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
}

func TestRenderManualCompletionStaysIneligible(t *testing.T) {
	f, svc := certFixture(t)
	enrollment := f.platform.addEnrollment(newStudentID())
	now := time.Now()
	enrollment.Completed = true
	enrollment.CompletionDate = &now
	f.loadStudent(t, enrollment.StudentID)

	cached, _ := f.store.Get(enrollment.EnrollmentID)
	if _, err := svc.Render(context.Background(), cached, "Ada Lovelace"); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
}

func TestRenderSelfHealsPartialCompletion(t *testing.T) {
	// The durable test result says passed, but the mark-complete step
	// failed earlier. The certificate request itself promotes and renders.
	f, svc := certFixture(t)
	enrollment := f.platform.addEnrollment(newStudentID())
	f.platform.testResults[enrollment.EnrollmentID] = append(
		f.platform.testResults[enrollment.EnrollmentID],
		passingTestResult(enrollment),
	)
	f.loadStudent(t, enrollment.StudentID)

	cached, _ := f.store.Get(enrollment.EnrollmentID)
	pdf, err := svc.Render(context.Background(), cached, "Ada Lovelace")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("self-healed render did not produce a PDF")
	}
	if !f.platform.enrollments[enrollment.EnrollmentID].Completed {
		t.Fatal("promotion did not reach the platform")
	}
}

func TestCertificateDetailsCarryPromotedScore(t *testing.T) {
	// The stale snapshot has no score fields; the certificate must print
	// the score from the promoted record, not a zero.
	f, svc := certFixture(t)
	enrollment := f.platform.addEnrollment(newStudentID())
	f.platform.testResults[enrollment.EnrollmentID] = append(
		f.platform.testResults[enrollment.EnrollmentID],
		passingTestResult(enrollment),
	)
	f.loadStudent(t, enrollment.StudentID)

	cached, _ := f.store.Get(enrollment.EnrollmentID)
	d, err := svc.details(context.Background(), cached, "Ada Lovelace")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if d.Percentage != 80 {
		t.Fatalf("certificate percentage = %d, want 80", d.Percentage)
	}
	if d.StudentName != "Ada Lovelace" {
		t.Fatalf("certificate student name = %q", d.StudentName)
	}
}
