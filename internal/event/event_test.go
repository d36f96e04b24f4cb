package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/khota/quizrunner/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	tests := map[string]struct {
		published []string
		// subscriptions maps a subscriber to the events it listens to.
		subscriptions map[string][]string
		want          map[string][]string
	}{
		"a subscriber only receives the events it listens to": {
			published:     []string{"quiz.completed", "leaderboard.updated"},
			subscriptions: map[string][]string{"history": {"quiz.completed"}},
			want:          map[string][]string{"history": {"quiz.completed"}},
		},
		"a subscriber receives every publish of an event": {
			published:     []string{"quiz.completed", "quiz.completed"},
			subscriptions: map[string][]string{"history": {"quiz.completed"}},
			want:          map[string][]string{"history": {"quiz.completed", "quiz.completed"}},
		},
		"an event reaches all of its subscribers": {
			published: []string{"quiz.completed"},
			subscriptions: map[string][]string{
				"history":     {"quiz.completed"},
				"leaderboard": {"quiz.completed"},
				"stream":      {"quiz.completed"},
			},
			want: map[string][]string{
				"history":     {"quiz.completed"},
				"leaderboard": {"quiz.completed"},
				"stream":      {"quiz.completed"},
			},
		},
		"mixed events reach the matching subscribers": {
			published: []string{"quiz.completed", "leaderboard.updated", "quiz.completed", "session.swept"},
			subscriptions: map[string][]string{
				"history":  {"quiz.completed"},
				"api":      {"quiz.completed", "leaderboard.updated"},
				"auditlog": {"session.swept", "leaderboard.updated"},
			},
			want: map[string][]string{
				"history":  {"quiz.completed", "quiz.completed"},
				"api":      {"quiz.completed", "quiz.completed", "leaderboard.updated"},
				"auditlog": {"leaderboard.updated", "session.swept"},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var (
				mu       sync.Mutex
				received = make(map[string][]string)
			)

			b := event.NewBus()
			for sub, names := range tt.subscriptions {
				for _, n := range names {
					b.Subscribe(n, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						received[sub] = append(received[sub], e.Name())
						mu.Unlock()
						return nil
					})
				}
			}

			for _, n := range tt.published {
				b.Publish(context.Background(), eventWithName(n))
			}
			b.Stop()

			for sub, want := range tt.want {
				assert.ElementsMatch(t, want, received[sub], sub)
			}
		})
	}
}

func TestBus_HandlerFailures(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(1), event.WithTimeout(time.Second))

	var (
		mu       sync.Mutex
		received []string
	)
	b.Subscribe("e1", func(ctx context.Context, e event.Event) error {
		panic("boom")
	})
	b.Subscribe("e1", func(ctx context.Context, e event.Event) error {
		return errors.New("failed")
	})
	b.Subscribe("e1", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		received = append(received, e.Name())
		mu.Unlock()
		return nil
	})

	for i := 0; i < 3; i++ {
		b.Publish(context.Background(), eventWithName("e1"))
	}
	b.Stop()

	assert.Equal(t, []string{"e1", "e1", "e1"}, received, "a panicking or failing handler should not affect other handlers")
}

func TestBus_HandlerContextOutlivesPublisher(t *testing.T) {
	b := event.NewBus()

	errc := make(chan error, 1)
	b.Subscribe("e1", func(ctx context.Context, e event.Event) error {
		errc <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Publish(ctx, eventWithName("e1"))
	b.Stop()

	assert.NoError(t, <-errc)
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}
