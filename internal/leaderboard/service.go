package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/errors"
	"github.com/khota/quizrunner/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service keeps the best score of every user per question bank.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return s.RecordAttempt(ctx, e.(domain.EventQuizCompleted))
	})

	return s
}

type GetLeaderboardRequest struct {
	BankID string
	// Limit caps the number of entries, 0 means all.
	Limit int64
}

// GetLeaderboard returns the best score of each user on a bank, highest first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.BankID), 0, req.Limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: bank=%s", req.BankID))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Username: z.Member.(string),
			Score:    z.Score,
		})
	}

	return &domain.Leaderboard{
		BankID:  req.BankID,
		Entries: entries,
	}, nil
}

// RecordAttempt keeps the attempt's score if it beats the user's previous best on the bank.
func (s *Service) RecordAttempt(ctx context.Context, e domain.EventQuizCompleted) error {
	a := e.Attempt

	// TODO: retry on error
	changed, err := s.redis.ZAddArgs(ctx, s.getLeaderboardKey(a.BankID), redis.ZAddArgs{
		GT:      true,
		Ch:      true,
		Members: []redis.Z{{Score: float64(a.Results.ScorePercentage), Member: a.Username}},
	}).Result()
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	if changed == 0 {
		return nil
	}

	return s.schedulePublishLeaderboard(ctx, a)
}

// schedulePublishLeaderboard publishes leaderboard changes at most once per publish interval per bank.
// Bursts of completions, such as a whole class hitting the time limit, produce a single event.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, a domain.Attempt) error {
	// This is a simple way to prevent multiple instances of the service from publishing the leaderboard.
	// But it's not perfect and can be improved.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(a.BankID), a.CompletedAt.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, a.BankID)
}

func (s *Service) publishLeaderboard(ctx context.Context, bankID string) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		BankID: bankID,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: bank=%s: %w", bankID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(bankID string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, bankID)
}

func (s *Service) getLeaderboardTimeKey(bankID string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, bankID)
}
