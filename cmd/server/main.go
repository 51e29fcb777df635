package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"patientcare-agent/internal/agent"
	"patientcare-agent/internal/config"
	"patientcare-agent/internal/core"
	"patientcare-agent/internal/db"
	httpserver "patientcare-agent/internal/http"
	"patientcare-agent/internal/llm"
	"patientcare-agent/internal/notify"

	_ "github.com/lib/pq"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Open database connection and verify it before serving.
	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer dbConn.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	repo := db.NewRepository(dbConn)

	llmClient := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	classifier := core.NewClassifier(llmClient, cfg.Agent.ClassifyTimeout.Std(), logger)
	webhook := notify.NewWebhook(cfg.Notify.URL, cfg.Notify.Timeout.Std(), logger)
	gate := core.NewGate(repo, webhook, logger)
	checkpoint := agent.NewFileCheckpoint(cfg.Agent.CheckpointPath)

	poller := agent.NewPoller(repo, classifier, gate, checkpoint, agent.Config{
		PollInterval: cfg.Agent.PollInterval.Std(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	server := httpserver.NewServer(repo, classifier, webhook, logger)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	// Wait for the poller to finish its cycle boundary before exiting.
	<-pollerDone
	logger.Info("shutdown complete")
}
