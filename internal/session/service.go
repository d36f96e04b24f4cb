package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khota/quizrunner/internal/bank"
	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/errors"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/quiz"
	"github.com/khota/quizrunner/internal/telemetry"
)

const defaultRetention = 30 * time.Minute

type Config struct {
	Banks    *bank.Registry
	EventBus *event.Bus
	Logger   *slog.Logger
	// Retention is how long completed sessions stay readable before Sweep drops them.
	Retention time.Duration
	Now       func() time.Time
}

// Service hosts live quiz sessions. Each session is guarded by its own mutex.
type Service struct {
	banks     *bank.Registry
	eb        *event.Bus
	log       *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu          sync.Mutex
	id          string
	username    string
	bankID      string
	createdAt   time.Time
	completedAt time.Time
	qs          *quiz.Session
}

func NewService(c Config) *Service {
	s := &Service{
		banks:     c.Banks,
		eb:        c.EventBus,
		log:       c.Logger,
		retention: c.Retention,
		now:       c.Now,
		sessions:  make(map[string]*entry),
	}

	if s.log == nil {
		s.log = slog.Default()
	}
	if s.retention <= 0 {
		s.retention = defaultRetention
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// View is what a client sees of a session.
type View struct {
	SessionID string
	Username  string
	BankID    string
	CreatedAt time.Time
	Snapshot  quiz.Snapshot
	Question  domain.Question
	// Answer is set once the current question is revealed.
	Answer *domain.UserAnswer
}

// CreateSessionRequest represents a request to start a quiz on a question bank.
type CreateSessionRequest struct {
	Username string
	BankID   string
	// TimeLimitMinutes overrides the bank's limit when positive.
	TimeLimitMinutes int
}

// CreateSession starts a new quiz session.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*View, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("username is required"))
	}
	if req.TimeLimitMinutes < 0 {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("time limit must not be negative"))
	}

	b, ok := s.banks.Get(req.BankID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("bank not found: bank=%s", req.BankID))
	}

	limit := b.TimeLimitMinutes
	if req.TimeLimitMinutes > 0 {
		limit = req.TimeLimitMinutes
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	e := &entry{
		id:        id.String(),
		username:  req.Username,
		bankID:    b.ID,
		createdAt: s.now(),
	}

	e.qs, err = quiz.New(b.Questions,
		quiz.WithTimeLimit(limit),
		quiz.WithClock(s.now),
		quiz.WithCompletionFunc(func(r domain.Results) {
			s.completed(e, r)
		}),
	)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithCause(err), errors.WithMessagef("start quiz: %v", err))
	}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	telemetry.SessionsStarted.Inc()
	telemetry.ActiveSessions.Inc()
	s.log.InfoContext(ctx, "session: created", "session", e.id, "username", e.username, "bank", e.bankID, "time_limit_minutes", limit)

	return e.view(), nil
}

// completed runs with e.mu held, from whichever operation finished the attempt.
func (s *Service) completed(e *entry, r domain.Results) {
	e.completedAt = s.now()

	telemetry.ActiveSessions.Dec()
	telemetry.SessionsCompleted.WithLabelValues(string(r.CompletionReason)).Inc()
	telemetry.ScorePercentage.Observe(float64(r.ScorePercentage))

	a := domain.Attempt{
		SessionID:   e.id,
		Attempt:     e.qs.Snapshot().Attempt,
		Username:    e.username,
		BankID:      e.bankID,
		Results:     r,
		CompletedAt: e.completedAt,
	}

	s.log.Info("session: completed",
		"session", e.id,
		"attempt", a.Attempt,
		"reason", r.CompletionReason,
		"score", r.ScorePercentage,
	)

	s.eb.Publish(context.Background(), domain.EventQuizCompleted{Attempt: a})
}

func (e *entry) view() *View {
	v := &View{
		SessionID: e.id,
		Username:  e.username,
		BankID:    e.bankID,
		CreatedAt: e.createdAt,
		Snapshot:  e.qs.Snapshot(),
		Question:  e.qs.Current(),
	}

	if v.Snapshot.Phase == quiz.PhaseAnswerRevealed {
		if a, ok := e.qs.Answer(v.Question.ID); ok {
			v.Answer = &a
		}
	}

	return v
}

// with runs f on the session under its lock.
func (s *Service) with(id string, f func(e *entry) error) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("session not found: session=%s", id))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return f(e)
}

type GetSessionRequest struct {
	SessionID string
}

func (s *Service) GetSession(_ context.Context, req GetSessionRequest) (*View, error) {
	var v *View
	err := s.with(req.SessionID, func(e *entry) error {
		v = e.view()
		return nil
	})
	return v, err
}

type SelectOptionRequest struct {
	SessionID string
	Option    int
}

// SelectOption stores the pending choice for the current question.
func (s *Service) SelectOption(_ context.Context, req SelectOptionRequest) (*View, error) {
	var v *View
	err := s.with(req.SessionID, func(e *entry) error {
		if err := e.qs.Select(req.Option); err != nil {
			return convert(err)
		}
		v = e.view()
		return nil
	})
	return v, err
}

type SubmitAnswerRequest struct {
	SessionID string
}

type SubmitAnswerResponse struct {
	Answer       domain.UserAnswer
	CorrectIndex int
	Explanation  string
	View         *View
}

// SubmitAnswer records the selected option of the current question and reveals the correct one.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	var resp *SubmitAnswerResponse
	err := s.with(req.SessionID, func(e *entry) error {
		a, err := e.qs.Submit()
		if err != nil {
			return convert(err)
		}

		q := e.qs.Current()
		resp = &SubmitAnswerResponse{
			Answer:       a,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
			View:         e.view(),
		}

		telemetry.AnswersSubmitted.WithLabelValues(fmt.Sprint(a.IsCorrect)).Inc()
		s.log.DebugContext(ctx, "session: answer submitted", "session", e.id, "question", a.QuestionID, "correct", a.IsCorrect)
		return nil
	})
	return resp, err
}

type AdvanceRequest struct {
	SessionID string
}

// Advance moves to the next question, or completes the quiz after the last one.
func (s *Service) Advance(_ context.Context, req AdvanceRequest) (*View, error) {
	var v *View
	err := s.with(req.SessionID, func(e *entry) error {
		if err := e.qs.Advance(); err != nil {
			return convert(err)
		}
		v = e.view()
		return nil
	})
	return v, err
}

type JumpRequest struct {
	SessionID string
	Index     int
}

func (s *Service) Jump(_ context.Context, req JumpRequest) (*View, error) {
	var v *View
	err := s.with(req.SessionID, func(e *entry) error {
		if err := e.qs.Jump(req.Index); err != nil {
			return convert(err)
		}
		v = e.view()
		return nil
	})
	return v, err
}

type RestartRequest struct {
	SessionID string
}

// Restart discards the answers of the session and starts a new attempt.
func (s *Service) Restart(ctx context.Context, req RestartRequest) (*View, error) {
	var v *View
	err := s.with(req.SessionID, func(e *entry) error {
		if e.completedAt.IsZero() {
			telemetry.ActiveSessions.Dec()
		}

		e.qs.Restart()
		e.completedAt = time.Time{}

		telemetry.SessionsStarted.Inc()
		telemetry.ActiveSessions.Inc()
		s.log.InfoContext(ctx, "session: restarted", "session", e.id, "attempt", e.qs.Snapshot().Attempt)

		v = e.view()
		return nil
	})
	return v, err
}

type GetResultsRequest struct {
	SessionID string
}

// GetResults returns the results of the current attempt, final once the quiz is completed.
func (s *Service) GetResults(_ context.Context, req GetResultsRequest) (*domain.Results, error) {
	var r domain.Results
	err := s.with(req.SessionID, func(e *entry) error {
		r = e.qs.Results()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type EndSessionRequest struct {
	SessionID string
}

// EndSession drops a session. A running attempt is discarded without completing.
func (s *Service) EndSession(ctx context.Context, req EndSessionRequest) error {
	s.mu.Lock()
	e, ok := s.sessions[req.SessionID]
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()

	if !ok {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("session not found: session=%s", req.SessionID))
	}

	e.mu.Lock()
	if e.completedAt.IsZero() {
		telemetry.ActiveSessions.Dec()
	}
	e.mu.Unlock()

	s.log.InfoContext(ctx, "session: ended", "session", req.SessionID)
	return nil
}

// TickAll advances the countdown of every session by one second and returns how many expired.
func (s *Service) TickAll(ctx context.Context) int {
	expired := 0
	for _, e := range s.entries() {
		e.mu.Lock()
		if e.qs.Tick() {
			expired++
		}
		e.mu.Unlock()
	}

	if expired > 0 {
		s.log.DebugContext(ctx, "session: time expired", "count", expired)
	}
	return expired
}

// Sweep drops sessions completed longer than the retention ago and returns how many were dropped.
func (s *Service) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)

	var stale []string
	for _, e := range s.entries() {
		e.mu.Lock()
		if !e.completedAt.IsZero() && e.completedAt.Before(cutoff) {
			stale = append(stale, e.id)
		}
		e.mu.Unlock()
	}

	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	for _, id := range stale {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "session: swept completed sessions", "count", len(stale))
	return len(stale)
}

func (s *Service) entries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	es := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		es = append(es, e)
	}
	return es
}

func convert(err error) error {
	switch {
	case stderrors.Is(err, quiz.ErrNoSelection):
		return errors.New(errors.CodeFailedPrecondition, errors.WithCause(err), errors.WithMessagef("no option selected"))
	case stderrors.Is(err, quiz.ErrInvalidTransition):
		return errors.New(errors.CodeFailedPrecondition, errors.WithCause(err), errors.WithMessagef("%v", err))
	case stderrors.Is(err, quiz.ErrOptionOutOfRange), stderrors.Is(err, quiz.ErrIndexOutOfRange):
		return errors.New(errors.CodeInvalidArgument, errors.WithCause(err), errors.WithMessagef("%v", err))
	}
	return err
}
