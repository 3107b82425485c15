package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// AutoSubmitFunc is invoked exactly once when a session's clock hits zero
// and the registry forces submission on the student's behalf.
type AutoSubmitFunc func(enrollmentID uuid.UUID, result ScoreResult)

type entry struct {
	session  *Session
	stop     chan struct{}
	stopOnce sync.Once
}

func (e *entry) halt() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Registry owns the active test sessions, keyed by enrollmentID, and
// drives each one with a fixed 1-second ticker. The ticker is stopped on
// both paths that end an attempt — submission and teardown — so a
// disposed session can never be submitted by a stray tick.
type Registry struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*entry
	pool         []model.Question
	sampleSize   int
	onAutoSubmit AutoSubmitFunc
	log          zerolog.Logger
}

// NewRegistry creates a Registry drawing sampleSize questions per attempt
// from the static pool.
func NewRegistry(pool []model.Question, sampleSize int, log zerolog.Logger) *Registry {
	return &Registry{
		sessions:   make(map[uuid.UUID]*entry),
		pool:       pool,
		sampleSize: sampleSize,
		log:        log.With().Str("component", "quiz_registry").Logger(),
	}
}

// SetAutoSubmit installs the forced-submission hook. Must be called before
// the first Start; the hook runs outside the registry lock.
func (r *Registry) SetAutoSubmit(fn AutoSubmitFunc) {
	r.onAutoSubmit = fn
}

// Start creates (or returns) the session for an enrollment. A still-active
// session is returned as-is — rejoining after a page reload must not
// discard the student's answers or reset the clock. A submitted session
// left behind by a previous attempt is replaced, which is how retakes
// begin. created reports whether a fresh attempt was started.
func (r *Registry) Start(enrollmentID uuid.UUID) (session *Session, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[enrollmentID]; ok {
		if existing.session.State() == StateInProgress {
			return existing.session, false, nil
		}
		existing.halt()
		delete(r.sessions, enrollmentID)
	}

	if r.sampleSize > len(r.pool) {
		r.log.Warn().
			Int("requested", r.sampleSize).
			Int("pool", len(r.pool)).
			Msg("Sample size exceeds pool, clamping")
	}
	questions := Sample(r.pool, r.sampleSize)

	s := NewSession()
	if err := s.Start(questions); err != nil {
		return nil, false, err
	}

	e := &entry{session: s, stop: make(chan struct{})}
	r.sessions[enrollmentID] = e
	go r.run(enrollmentID, e)

	return s, true, nil
}

// Get returns the session for an enrollment, if any.
func (r *Registry) Get(enrollmentID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[enrollmentID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Submit finalizes the session manually and stops its ticker. The session
// stays registered (submitted) so the result remains queryable until the
// next Start or Teardown.
func (r *Registry) Submit(enrollmentID uuid.UUID) (*ScoreResult, error) {
	r.mu.Lock()
	e, ok := r.sessions[enrollmentID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotStarted
	}

	result, err := e.session.Submit()
	if err != nil {
		return nil, err
	}
	e.halt()
	return result, nil
}

// Teardown abandons the session and stops its ticker, e.g. when the
// student navigates away or unenrolls mid-attempt.
func (r *Registry) Teardown(enrollmentID uuid.UUID) {
	r.mu.Lock()
	e, ok := r.sessions[enrollmentID]
	if ok {
		delete(r.sessions, enrollmentID)
	}
	r.mu.Unlock()

	if ok {
		e.halt()
	}
}

// run drives one session at 1-second resolution until it is submitted or
// torn down.
func (r *Registry) run(enrollmentID uuid.UUID, e *entry) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			result, forced := e.session.Tick()
			if e.session.State() == StateSubmitted {
				e.halt()
				if forced && r.onAutoSubmit != nil {
					r.log.Info().
						Stringer("enrollment_id", enrollmentID).
						Int("score", result.Score).
						Msg("Time expired, forced submission")
					r.onAutoSubmit(enrollmentID, *result)
				}
				return
			}
		}
	}
}
