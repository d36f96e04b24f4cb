package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khota/quizrunner/internal/config"
	"github.com/khota/quizrunner/internal/server"
	"github.com/khota/quizrunner/internal/telemetry"
)

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	l := telemetry.NewLogger(os.Stdout, c.Log)
	slog.SetDefault(l)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c, l)
	if err != nil {
		log.Fatalf("Init server failed: %v", err)
	}

	go s.Start()

	<-shutdown
	s.Shutdown()
}

func loadConfig() (server.Config, error) {
	var c server.Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Banks.Dir = "banks"
	c.Session.Retention = 30 * time.Minute
	c.Session.SweepInterval = time.Minute
	c.Kafka.Topic = "quiz.attempts"

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		return c, fmt.Errorf("CONFIG_PATH not set")
	}

	if err := config.Load(p, &c, ".env"); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
