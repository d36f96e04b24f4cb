package stream_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/stream"
)

func TestPublisher_ForwardsCompletedAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	msgs, err := ps.Subscribe(ctx, "quiz-attempts")
	require.NoError(t, err)

	eb := event.NewBus()
	p := stream.New(stream.Config{
		EventBus:  eb,
		Publisher: ps,
		Topic:     "quiz-attempts",
	})
	defer p.Close()

	completedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	eb.Publish(ctx, domain.EventQuizCompleted{
		Attempt: domain.Attempt{
			SessionID: "s1",
			Attempt:   2,
			Username:  "u1",
			BankID:    "b1",
			Results: domain.Results{
				ScorePercentage:  60,
				Grade:            domain.GradeD,
				Rating:           domain.RatingAcceptable,
				TotalQuestions:   5,
				CorrectAnswers:   3,
				WrongAnswers:     2,
				CompletionReason: domain.CompletionTimeExpired,
				Answers:          map[string]int{"q1": 1},
			},
			CompletedAt: completedAt,
		},
	})

	select {
	case msg := <-msgs:
		msg.Ack()

		assert.Equal(t, domain.EventNameQuizCompleted, msg.Metadata.Get("event_type"))
		assert.Equal(t, "u1", msg.Metadata.Get("partition_key"))

		var got stream.AttemptMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, stream.AttemptMessage{
			SessionID:        "s1",
			Attempt:          2,
			Username:         "u1",
			BankID:           "b1",
			ScorePercentage:  60,
			Grade:            "D",
			Rating:           "acceptable",
			TotalQuestions:   5,
			CorrectAnswers:   3,
			WrongAnswers:     2,
			CompletionReason: "time_expired",
			Answers:          map[string]int{"q1": 1},
			CompletedAt:      completedAt,
		}, got)
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	eb.Stop()
}
