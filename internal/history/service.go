// Package history stores completed quiz attempts in Postgres.
package history

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/errors"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/score"
)

//go:embed schema.sql
var schema string

const defaultListLimit = 50

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
}

type Service struct {
	eb *event.Bus
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	s := &Service{
		eb: c.EventBus,
		db: c.DB,
	}

	s.eb.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return s.InsertAttempt(ctx, e.(domain.EventQuizCompleted).Attempt)
	})

	return s
}

// Migrate creates the attempts table if it does not exist.
func (s *Service) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// InsertAttempt stores a completed attempt. Storing the same attempt twice is an AlreadyExists error.
func (s *Service) InsertAttempt(ctx context.Context, a domain.Attempt) error {
	const stmt = `
INSERT INTO attempts (
	session_id, attempt, username, bank_id, score, grade,
	total_questions, correct_answers, wrong_answers, unanswered,
	points_earned, points_possible, time_spent, completion_reason, answers, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`

	r := a.Results
	_, err := s.db.Exec(ctx, stmt,
		a.SessionID, a.Attempt, a.Username, a.BankID, r.ScorePercentage, string(r.Grade),
		r.TotalQuestions, r.CorrectAnswers, r.WrongAnswers, r.Unanswered,
		r.PointsEarned, r.PointsPossible, r.TimeSpentSeconds, string(r.CompletionReason), r.Answers, a.CompletedAt,
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt already stored: session=%s attempt=%d", a.SessionID, a.Attempt),
			errors.WithCause(err))
	}

	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	return nil
}

type ListAttemptsRequest struct {
	Username string
	// BankID filters by bank when set.
	BankID string
	Limit  int
}

// ListAttempts returns a user's attempts, most recent first.
func (s *Service) ListAttempts(ctx context.Context, req ListAttemptsRequest) ([]domain.Attempt, error) {
	const stmt = `
SELECT session_id::text, attempt, username, bank_id, score,
	total_questions, correct_answers, wrong_answers, unanswered,
	points_earned, points_possible, time_spent, completion_reason, answers, completed_at
FROM attempts
WHERE username = $1 AND ($2 = '' OR bank_id = $2)
ORDER BY completed_at DESC
LIMIT $3;`

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(ctx, stmt, req.Username, req.BankID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Attempt, error) {
		var (
			a      domain.Attempt
			r      = &a.Results
			reason string
		)
		if err := row.Scan(
			&a.SessionID, &a.Attempt, &a.Username, &a.BankID, &r.ScorePercentage,
			&r.TotalQuestions, &r.CorrectAnswers, &r.WrongAnswers, &r.Unanswered,
			&r.PointsEarned, &r.PointsPossible, &r.TimeSpentSeconds, &reason, &r.Answers, &a.CompletedAt,
		); err != nil {
			return domain.Attempt{}, err
		}

		r.CompletionReason = domain.CompletionReason(reason)
		r.Grade = score.GradeFor(r.ScorePercentage)
		r.Rating = score.RatingFor(r.ScorePercentage)
		r.Final = true
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return attempts, nil
}
