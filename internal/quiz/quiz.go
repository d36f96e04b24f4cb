// Package quiz implements a timed, single-pass multiple-choice quiz session.
//
// A Session is a plain state machine owned by its caller. It starts no goroutines and registers no
// timers: the host advances the countdown by calling Tick once per second from its own scheduler.
// A Session is not safe for concurrent use.
package quiz

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"

	"github.com/khota/quizrunner/internal/bank"
	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/score"
)

// DefaultTimeLimitMinutes is used when no time limit is configured.
const DefaultTimeLimitMinutes = 30

const noSelection = -1

var (
	ErrInvalidTransition = stderrors.New("quiz: invalid transition")
	ErrNoSelection       = stderrors.New("quiz: no option selected")
	ErrOptionOutOfRange  = stderrors.New("quiz: option out of range")
	ErrIndexOutOfRange   = stderrors.New("quiz: question index out of range")
	ErrInvalidTimeLimit  = stderrors.New("quiz: invalid time limit")
)

type Phase int

const (
	PhaseInProgress Phase = iota
	PhaseAnswerRevealed
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseAnswerRevealed:
		return "answer_revealed"
	case PhaseCompleted:
		return "completed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// CompletionFunc is called once per attempt with the final results.
type CompletionFunc func(r domain.Results)

type Option func(*Session)

// WithTimeLimit sets the countdown in minutes. Zero selects DefaultTimeLimitMinutes.
func WithTimeLimit(minutes int) Option {
	return func(s *Session) {
		s.limitMinutes = minutes
	}
}

func WithCompletionFunc(f CompletionFunc) Option {
	return func(s *Session) {
		s.onComplete = f
	}
}

// WithClock overrides time.Now, used to measure the time spent on each question.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

type Session struct {
	questions    []domain.Question
	limitMinutes int
	onComplete   CompletionFunc
	now          func() time.Time

	limit     int // seconds
	remaining int
	phase     Phase
	current   int
	selected  int
	enteredAt time.Time
	answers   map[string]domain.UserAnswer
	attempt   int
	reason    domain.CompletionReason
	final     *domain.Results
}

// New validates the questions and starts the first attempt in InProgress(0).
func New(questions []domain.Question, opts ...Option) (*Session, error) {
	if err := bank.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	s := &Session{
		questions: questions,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.limitMinutes < 0 {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTimeLimit, s.limitMinutes)
	}
	if s.limitMinutes == 0 {
		s.limitMinutes = DefaultTimeLimitMinutes
	}
	s.limit = s.limitMinutes * 60

	s.reset()
	return s, nil
}

func (s *Session) reset() {
	s.attempt++
	s.remaining = s.limit
	s.answers = make(map[string]domain.UserAnswer, len(s.questions))
	s.reason = ""
	s.final = nil
	s.enter(0)
}

// enter moves to question i. Answered questions are shown revealed since their answer is final.
func (s *Session) enter(i int) {
	s.current = i
	s.selected = noSelection
	s.enteredAt = s.now()

	if _, ok := s.answers[s.questions[i].ID]; ok {
		s.phase = PhaseAnswerRevealed
		return
	}
	s.phase = PhaseInProgress
}

// Select stores the pending choice for the current question.
func (s *Session) Select(option int) error {
	if s.phase != PhaseInProgress {
		return fmt.Errorf("%w: select in %s", ErrInvalidTransition, s.phase)
	}

	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d of %d", ErrOptionOutOfRange, option, len(q.Options))
	}

	s.selected = option
	return nil
}

// Submit records the pending choice and reveals the answer. Without a selection nothing is
// recorded, the phase is unchanged and ErrNoSelection is returned.
func (s *Session) Submit() (domain.UserAnswer, error) {
	if s.phase != PhaseInProgress {
		return domain.UserAnswer{}, fmt.Errorf("%w: submit in %s", ErrInvalidTransition, s.phase)
	}
	if s.selected == noSelection {
		return domain.UserAnswer{}, ErrNoSelection
	}

	q := s.questions[s.current]
	now := s.now()

	spent := int(now.Sub(s.enteredAt) / time.Second)
	if spent < 0 {
		spent = 0
	}

	a := domain.UserAnswer{
		QuestionID:       q.ID,
		SelectedIndex:    s.selected,
		IsCorrect:        s.selected == q.CorrectIndex,
		TimeSpentSeconds: spent,
		SubmitTime:       now,
	}
	s.answers[q.ID] = a
	s.phase = PhaseAnswerRevealed

	return a, nil
}

// Advance moves past a revealed answer, completing the session after the last question.
func (s *Session) Advance() error {
	if s.phase != PhaseAnswerRevealed {
		return fmt.Errorf("%w: advance in %s", ErrInvalidTransition, s.phase)
	}

	if s.current+1 >= len(s.questions) {
		s.complete(domain.CompletionFinished)
		return nil
	}

	s.enter(s.current + 1)
	return nil
}

// Jump navigates to question j, dropping any pending selection.
func (s *Session) Jump(j int) error {
	if s.phase == PhaseCompleted {
		return fmt.Errorf("%w: jump in %s", ErrInvalidTransition, s.phase)
	}
	if j < 0 || j >= len(s.questions) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, j, len(s.questions))
	}

	s.enter(j)
	return nil
}

// Tick advances the countdown by one second. It reports whether this tick expired the time limit;
// ticks after completion are ignored.
func (s *Session) Tick() bool {
	if s.phase == PhaseCompleted {
		return false
	}

	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false
	}

	s.complete(domain.CompletionTimeExpired)
	return true
}

// Restart discards all answers and starts a new attempt with a full countdown.
func (s *Session) Restart() {
	s.reset()
}

func (s *Session) complete(reason domain.CompletionReason) {
	if s.phase == PhaseCompleted {
		return
	}

	s.phase = PhaseCompleted
	s.selected = noSelection
	s.reason = reason

	r := s.compute()
	r.Final = true
	s.final = &r

	if s.onComplete != nil {
		s.onComplete(cloneResults(r))
	}
}

func (s *Session) compute() domain.Results {
	r := score.Compute(s.questions, s.answers, s.limit-s.remaining)
	r.CompletionReason = s.reason
	return r
}

// Results returns the results of the current attempt. They are recomputed from the answers
// until the session completes and frozen afterwards.
func (s *Session) Results() domain.Results {
	if s.final != nil {
		return cloneResults(*s.final)
	}
	return s.compute()
}

func cloneResults(r domain.Results) domain.Results {
	r.Answers = maps.Clone(r.Answers)
	r.ByDifficulty = maps.Clone(r.ByDifficulty)
	r.ByCategory = maps.Clone(r.ByCategory)
	return r
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Phase            Phase
	Index            int
	Selected         int // -1 when nothing is selected
	Total            int
	Answered         int
	RemainingSeconds int
	Attempt          int
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Phase:            s.phase,
		Index:            s.current,
		Selected:         s.selected,
		Total:            len(s.questions),
		Answered:         len(s.answers),
		RemainingSeconds: s.remaining,
		Attempt:          s.attempt,
	}
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Current() domain.Question { return s.questions[s.current] }

// Answer returns the recorded answer for a question of the current attempt.
func (s *Session) Answer(questionID string) (domain.UserAnswer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

func (s *Session) Questions() []domain.Question { return s.questions }
