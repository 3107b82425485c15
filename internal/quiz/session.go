package quiz

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/coursiva/enroll-gateway/internal/model"
)

const (
	// DurationSeconds is the fixed time budget of one test attempt.
	DurationSeconds = 300
	// PassThreshold is the minimum percentage that counts as a pass.
	PassThreshold = 60
)

// State is the lifecycle phase of a test session.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitted  State = "SUBMITTED"
)

var (
	ErrAlreadyStarted  = errors.New("quiz: session already started")
	ErrNotStarted      = errors.New("quiz: session not started")
	ErrNoQuestions     = errors.New("quiz: question set is empty")
	ErrAlreadySubmit   = errors.New("quiz: session already submitted")
	ErrTimeExpired     = errors.New("quiz: time expired")
	ErrIndexOutOfRange = errors.New("quiz: index out of range")
)

// ScoreResult is the outcome of one submitted test. Unanswered questions
// count as incorrect.
type ScoreResult struct {
	Score          int  `json:"score"`
	CorrectCount   int  `json:"correctCount"`
	TotalQuestions int  `json:"totalQuestions"`
	Passed         bool `json:"passed"`
}

// Session is the ephemeral controller of one test attempt. It is never
// persisted: the durable TestResult is written by the completion
// coordinator after Submit.
//
// Ticks arrive from the registry goroutine while answers arrive from
// request handlers, so unlike a single-threaded UI the session needs its
// own lock. The Submitted terminal state makes auto-submit and manual
// submit race-free: whichever lands second gets the cached result.
type Session struct {
	mu        sync.Mutex
	questions []model.Question
	answers   map[int]int
	remaining int
	state     State
	result    *ScoreResult
	startedAt time.Time
}

// NewSession creates a session in NotStarted.
func NewSession() *Session {
	return &Session{state: StateNotStarted}
}

// Start fixes the question set and arms the countdown. Calling Start on a
// session that already left NotStarted fails.
func (s *Session) Start(questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return ErrAlreadyStarted
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	s.questions = questions
	s.answers = make(map[int]int)
	s.remaining = DurationSeconds
	s.state = StateInProgress
	s.startedAt = time.Now()
	return nil
}

// SelectAnswer records (or overwrites) the chosen option for one question.
// Rejected once the session is submitted or time has run out, even if the
// forced submission has not finished yet.
func (s *Session) SelectAnswer(questionIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNotStarted:
		return ErrNotStarted
	case StateSubmitted:
		return ErrAlreadySubmit
	}
	if s.remaining <= 0 {
		return ErrTimeExpired
	}
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(s.questions[questionIndex].Options) {
		return ErrIndexOutOfRange
	}

	s.answers[questionIndex] = optionIndex
	return nil
}

// Tick advances the countdown by one second. When the clock reaches zero
// it forces submission and returns the result with forced=true, exactly
// once; later ticks are no-ops.
func (s *Session) Tick() (result *ScoreResult, forced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return nil, false
	}

	s.remaining--
	if s.remaining > 0 {
		return nil, false
	}
	s.remaining = 0
	return s.submitLocked(), true
}

// Submit finalizes the attempt. Idempotent: a repeated call returns the
// cached result instead of recomputing.
func (s *Session) Submit() (*ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNotStarted:
		return nil, ErrNotStarted
	case StateSubmitted:
		return s.result, nil
	}
	return s.submitLocked(), nil
}

func (s *Session) submitLocked() *ScoreResult {
	correct := 0
	for i, q := range s.questions {
		if chosen, ok := s.answers[i]; ok && chosen == q.CorrectAnswer {
			correct++
		}
	}
	total := len(s.questions)
	percentage := int(math.Round(100 * float64(correct) / float64(total)))

	s.result = &ScoreResult{
		Score:          percentage,
		CorrectCount:   correct,
		TotalQuestions: total,
		Passed:         percentage >= PassThreshold,
	}
	s.state = StateSubmitted
	return s.result
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Questions returns the fixed question set of this attempt.
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Answers returns a copy of the partial answer map (question index →
// selected option index).
func (s *Session) Answers() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Result returns the cached score, or nil before submission.
func (s *Session) Result() *ScoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
