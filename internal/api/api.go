package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/khota/quizrunner/internal/bank"
	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/errors"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/history"
	"github.com/khota/quizrunner/internal/leaderboard"
	"github.com/khota/quizrunner/internal/session"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Banks        *bank.Registry
	Session      *session.Service
	Leaderboard  *leaderboard.Service
	History      History
	Redis        Redis
	PubsubPrefix string
	Logger       *slog.Logger
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type History interface {
	ListAttempts(ctx context.Context, req history.ListAttemptsRequest) ([]domain.Attempt, error)
}

type API struct {
	banks *bank.Registry
	qss   *session.Service
	ls    *leaderboard.Service
	hs    History

	redis  Redis
	prefix string
	log    *slog.Logger
}

func New(c Config) *API {
	a := &API{
		banks:  c.Banks,
		qss:    c.Session,
		ls:     c.Leaderboard,
		hs:     c.History,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
		log:    c.Logger,
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1")

	v1.POST("/sessions", a.CreateSession)
	v1.GET("/sessions/:id", a.GetSession)
	v1.DELETE("/sessions/:id", a.EndSession)
	v1.POST("/sessions/:id/select", a.SelectOption)
	v1.POST("/sessions/:id/submit", a.SubmitAnswer)
	v1.POST("/sessions/:id/advance", a.Advance)
	v1.POST("/sessions/:id/jump", a.Jump)
	v1.POST("/sessions/:id/restart", a.Restart)
	v1.GET("/sessions/:id/results", a.GetResults)

	v1.GET("/banks", a.ListBanks)
	v1.GET("/banks/:id/leaderboard", a.GetLeaderboard)
	v1.GET("/users/:username/attempts", a.ListAttempts)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})
	c.EventBus.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return a.PublishQuizCompleted(ctx, e.(domain.EventQuizCompleted))
	})

	return a
}

// fail writes err as a JSON error. Causes of internal errors are logged, never returned.
func (a *API) fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		a.log.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func (a *API) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body: %v", err),
			errors.WithCause(err),
		))
		return false
	}
	return true
}

func invalidQuery(err error) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid query: %v", err),
		errors.WithCause(err),
	)
}
