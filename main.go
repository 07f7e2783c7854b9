package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/adapter/llm"
	"github.com/taleemedge/chatbot/internal/config"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/oracle"
	"github.com/taleemedge/chatbot/internal/repository"
	"github.com/taleemedge/chatbot/internal/service"
	handler "github.com/taleemedge/chatbot/internal/transport/http"
	"github.com/taleemedge/chatbot/policy"
)

func main() {
	// Load configuration
	config.LoadDotEnv()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := cfg.NewLogger()

	log.Info("Starting chat service...")
	log.Infof("HTTP Port: %d", cfg.HTTPPort)
	log.Infof("Database: %s", cfg.DatabaseURL)
	log.Infof("Oracle provider: %s (model %s, timeout %s)", cfg.OracleProvider, cfg.ModelName(), cfg.OracleTimeout)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Initialize LLM client
	llmClient, err := llm.NewLLMClient(ctx, cfg.LLMOptions(), log)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	m := metrics.New()
	gen := oracle.New(llmClient, oracle.Config{Model: cfg.ModelName(), Timeout: cfg.OracleTimeout}, log, m)

	// Initialize service
	svc := service.New(db, gen, log,
		service.WithPolicy(policyEngine),
		service.WithActivitySink(service.NewStoreActivitySink(db, log)),
		service.WithMetrics(m),
	)

	server := handler.NewServer(svc, handler.ServerOptions{
		AuthAPIKey: cfg.AuthAPIKey,
		Metrics:    m,
		Log:        log,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Infof("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down chat service...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shutdown server gracefully: %v", err)
	}

	log.Info("Chat service stopped")
}
