package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/khota/quizrunner/internal/api"
	"github.com/khota/quizrunner/internal/bank"
	"github.com/khota/quizrunner/internal/event"
	"github.com/khota/quizrunner/internal/history"
	"github.com/khota/quizrunner/internal/leaderboard"
	"github.com/khota/quizrunner/internal/session"
	"github.com/khota/quizrunner/internal/stream"
	"github.com/khota/quizrunner/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log telemetry.LogConfig

	Banks struct {
		Dir string
	}

	Session struct {
		Retention     time.Duration
		SweepInterval time.Duration
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		History struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	// Kafka is optional. The attempt stream is disabled when no broker is set.
	Kafka struct {
		Brokers []string
		Topic   string
	}
}

type Server struct {
	c   Config
	log *slog.Logger

	eb    *event.Bus
	banks *bank.Registry

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			history *pgxpool.Pool
		}
	}

	service struct {
		session     *session.Service
		history     *history.Service
		leaderboard *leaderboard.Service
		stream      *stream.Publisher
	}

	clock  *session.Clock
	health *health.Server
	http   *http.Server
	grpc   *grpc.Server
}

func Init(c Config, l *slog.Logger) (*Server, error) {
	s := &Server{c: c, log: l}

	s.eb = event.NewBus(event.WithLogger(l))

	if err := s.initBanks(); err != nil {
		return nil, fmt.Errorf("server: init banks: %w", err)
	}

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initBanks() error {
	s.banks = bank.NewRegistry()

	n, err := s.banks.LoadDir(s.c.Banks.Dir)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no question bank found in %q", s.c.Banks.Dir)
	}

	s.log.Info("server: question banks loaded", "dir", s.c.Banks.Dir, "count", n)
	return nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r, s.log); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg := s.c.Postgres.History
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return fmt.Errorf("history: %w", err)
	}

	s.infra.postgres.history = db
	return nil
}

func (s *Server) initService() error {
	s.service.history = history.NewService(history.Config{
		EventBus: s.eb,
		DB:       s.infra.postgres.history,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.service.history.Migrate(ctx); err != nil {
		return err
	}

	s.service.session = session.NewService(session.Config{
		Banks:     s.banks,
		EventBus:  s.eb,
		Logger:    s.log,
		Retention: s.c.Session.Retention,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	if len(s.c.Kafka.Brokers) > 0 {
		p, err := stream.NewKafkaPublisher(s.c.Kafka.Brokers, s.log)
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}

		s.service.stream = stream.New(stream.Config{
			EventBus:  s.eb,
			Publisher: p,
			Topic:     s.c.Kafka.Topic,
		})
	} else {
		s.log.Warn("server: kafka brokers not set, attempt stream disabled")
	}

	var err error
	s.clock, err = session.NewClock(s.service.session, s.c.Session.SweepInterval)
	if err != nil {
		return fmt.Errorf("clock: %w", err)
	}

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(api.RequestLogger(s.log), gin.Recovery())

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors(s.log)...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Banks:        s.banks,
		Session:      s.service.session,
		Leaderboard:  s.service.leaderboard,
		History:      s.service.history,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		Logger:       s.log,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		s.log.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.clock.Start()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		s.log.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		s.log.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		s.log.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

// Shutdown stops the clock before the transports so no session completes against a stopped bus.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.clock.Stop()
	s.health.Shutdown()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.service.stream != nil {
		if err := s.service.stream.Close(); err != nil {
			s.log.ErrorContext(ctx, "server: close stream failed", "error", err)
		}
	}

	s.infra.postgres.history.Close()
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if err := r.Close(); err != nil {
			s.log.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	s.log.InfoContext(ctx, "server: shutdown completed")
}
