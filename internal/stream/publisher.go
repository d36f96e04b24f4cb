// Package stream forwards completed attempts to the analytics stream.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/event"
)

const (
	messageVersion = "1"
	partitionKey   = "partition_key"
)

type Config struct {
	EventBus  *event.Bus
	Publisher message.Publisher
	Topic     string
}

type Publisher struct {
	pub   message.Publisher
	topic string
}

// New subscribes a Publisher to completed attempts on the event bus.
func New(c Config) *Publisher {
	p := &Publisher{
		pub:   c.Publisher,
		topic: c.Topic,
	}

	c.EventBus.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return p.PublishAttempt(ctx, e.(domain.EventQuizCompleted).Attempt)
	})

	return p
}

// NewKafkaPublisher connects a watermill publisher to the given Kafka brokers.
func NewKafkaPublisher(brokers []string, l *slog.Logger) (message.Publisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
			return msg.Metadata.Get(partitionKey), nil
		}),
	}, watermill.NewSlogLogger(l))
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return pub, nil
}

// AttemptMessage is the payload of a quiz.completed message.
type AttemptMessage struct {
	SessionID        string         `json:"session_id"`
	Attempt          int            `json:"attempt"`
	Username         string         `json:"username"`
	BankID           string         `json:"bank_id"`
	ScorePercentage  int            `json:"score_percentage"`
	Grade            string         `json:"grade"`
	Rating           string         `json:"rating"`
	TotalQuestions   int            `json:"total_questions"`
	CorrectAnswers   int            `json:"correct_answers"`
	WrongAnswers     int            `json:"wrong_answers"`
	Unanswered       int            `json:"unanswered"`
	PointsEarned     int            `json:"points_earned"`
	PointsPossible   int            `json:"points_possible"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	CompletionReason string         `json:"completion_reason"`
	Answers          map[string]int `json:"answers"`
	CompletedAt      time.Time      `json:"completed_at"`
}

func (p *Publisher) PublishAttempt(ctx context.Context, a domain.Attempt) error {
	r := a.Results
	b, err := json.Marshal(AttemptMessage{
		SessionID:        a.SessionID,
		Attempt:          a.Attempt,
		Username:         a.Username,
		BankID:           a.BankID,
		ScorePercentage:  r.ScorePercentage,
		Grade:            string(r.Grade),
		Rating:           string(r.Rating),
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		WrongAnswers:     r.WrongAnswers,
		Unanswered:       r.Unanswered,
		PointsEarned:     r.PointsEarned,
		PointsPossible:   r.PointsPossible,
		TimeSpentSeconds: r.TimeSpentSeconds,
		CompletionReason: string(r.CompletionReason),
		Answers:          r.Answers,
		CompletedAt:      a.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("stream: marshal attempt: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), b)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", domain.EventNameQuizCompleted)
	msg.Metadata.Set("version", messageVersion)
	// Kafka partitions by user, so each user's attempts stay in order.
	msg.Metadata.Set(partitionKey, a.Username)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("stream: publish attempt %s/%d: %w", a.SessionID, a.Attempt, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.pub.Close()
}
