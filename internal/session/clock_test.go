package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khota/quizrunner/internal/session"
)

func TestClock_TicksSessions(t *testing.T) {
	s, _ := makeService(t)
	ctx := context.Background()

	v, err := s.CreateSession(ctx, session.CreateSessionRequest{Username: "u1", BankID: "b1"})
	require.NoError(t, err)
	start := v.Snapshot.RemainingSeconds

	c, err := session.NewClock(s, time.Hour)
	require.NoError(t, err)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		got, err := s.GetSession(ctx, session.GetSessionRequest{SessionID: v.SessionID})
		return err == nil && got.Snapshot.RemainingSeconds <= start-2
	}, 5*time.Second, 100*time.Millisecond)
}
