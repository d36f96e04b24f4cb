//go:build integration_test

package history_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/errors"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/history"
)

func TestService_InsertAndList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := makeService(t, ctx)
	require.NoError(t, s.Migrate(ctx))

	username := "u-" + uuid.NewString()
	a := domain.Attempt{
		SessionID: uuid.NewString(),
		Attempt:   1,
		Username:  username,
		BankID:    "b1",
		Results: domain.Results{
			ScorePercentage:  60,
			Grade:            domain.GradeD,
			TotalQuestions:   5,
			CorrectAnswers:   3,
			WrongAnswers:     2,
			TimeSpentSeconds: 95,
			CompletionReason: domain.CompletionFinished,
			Answers:          map[string]int{"q1": 0, "q2": 1},
		},
		CompletedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, s.InsertAttempt(ctx, a))

	err := s.InsertAttempt(ctx, a)
	assert.Equal(t, errors.CodeAlreadyExists, errors.CodeOf(err))

	got, err := s.ListAttempts(ctx, history.ListAttemptsRequest{Username: username})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.SessionID, got[0].SessionID)
	assert.Equal(t, 60, got[0].Results.ScorePercentage)
	assert.Equal(t, domain.RatingAcceptable, got[0].Results.Rating)
	assert.Equal(t, a.Results.Answers, got[0].Results.Answers)
	assert.True(t, a.CompletedAt.Equal(got[0].CompletedAt))

	got, err = s.ListAttempts(ctx, history.ListAttemptsRequest{Username: username, BankID: "other"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func makeService(t *testing.T, ctx context.Context) *history.Service {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}

	db, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return history.NewService(history.Config{
		EventBus: event.NewBus(),
		DB:       db,
	})
}
