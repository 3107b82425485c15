package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestRegistry(poolSize, sampleSize int) *Registry {
	return NewRegistry(makePool(poolSize), sampleSize, zerolog.Nop())
}

func TestRegistryStartRejoins(t *testing.T) {
	r := newTestRegistry(20, 10)
	id := uuid.New()

	first, created, err := r.Start(id)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !created {
		t.Fatal("first Start reported created=false")
	}

	if err := first.SelectAnswer(0, 1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	second, created, err := r.Start(id)
	if err != nil {
		t.Fatalf("rejoin Start: %v", err)
	}
	if created {
		t.Fatal("rejoin reported created=true")
	}
	if first != second {
		t.Fatal("rejoin returned a different session")
	}
	if got := second.Answers()[0]; got != 1 {
		t.Fatalf("rejoin lost answers: answer for q0 = %d, want 1", got)
	}
}

func TestRegistryStartReplacesSubmitted(t *testing.T) {
	r := newTestRegistry(20, 10)
	id := uuid.New()

	first, _, err := r.Start(id)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Submit(id); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The submitted session stays queryable until the next Start.
	got, ok := r.Get(id)
	if !ok || got != first {
		t.Fatal("submitted session disappeared before retake")
	}

	retake, created, err := r.Start(id)
	if err != nil {
		t.Fatalf("retake Start: %v", err)
	}
	if !created {
		t.Fatal("retake reported created=false")
	}
	if retake == first {
		t.Fatal("retake reused the submitted session")
	}
	if retake.State() != StateInProgress {
		t.Fatalf("retake state = %s, want %s", retake.State(), StateInProgress)
	}
}

func TestRegistrySubmitUnknownEnrollment(t *testing.T) {
	r := newTestRegistry(20, 10)
	if _, err := r.Submit(uuid.New()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Submit unknown = %v, want ErrNotStarted", err)
	}
}

func TestRegistryTeardown(t *testing.T) {
	r := newTestRegistry(20, 10)
	id := uuid.New()

	if _, _, err := r.Start(id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Teardown(id)

	if _, ok := r.Get(id); ok {
		t.Fatal("session still registered after Teardown")
	}
	// Repeated teardown of a missing session is a no-op.
	r.Teardown(id)
}

func TestRegistrySamplesClampedSession(t *testing.T) {
	r := newTestRegistry(4, 10)

	session, _, err := r.Start(uuid.New())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := len(session.Questions()); got != 4 {
		t.Fatalf("session has %d questions, want the whole pool of 4", got)
	}
}

func TestRegistryAutoSubmitHook(t *testing.T) {
	r := newTestRegistry(6, 3)
	id := uuid.New()

	fired := make(chan ScoreResult, 1)
	r.SetAutoSubmit(func(enrollmentID uuid.UUID, result ScoreResult) {
		if enrollmentID == id {
			fired <- result
		}
	})

	session, _, err := r.Start(id)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Drain the clock directly instead of waiting five real minutes; the
	// registry goroutine's next tick crosses zero and forces submission.
	for i := 0; i < DurationSeconds-1; i++ {
		session.Tick()
	}

	select {
	case result := <-fired:
		if result.TotalQuestions != 3 {
			t.Fatalf("auto-submit result total = %d, want 3", result.TotalQuestions)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("auto-submit hook never fired")
	}

	if session.State() != StateSubmitted {
		t.Fatalf("state = %s, want %s", session.State(), StateSubmitted)
	}
}
