// Package main is the entry point for the chat orchestration API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/agent"
	"github.com/tasklane-ai/chat-orchestrator/internal/config"
	"github.com/tasklane-ai/chat-orchestrator/internal/handler"
	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
	"github.com/tasklane-ai/chat-orchestrator/internal/middleware"
	natsclient "github.com/tasklane-ai/chat-orchestrator/internal/nats"
	"github.com/tasklane-ai/chat-orchestrator/internal/service"
	"github.com/tasklane-ai/chat-orchestrator/internal/store"
	"github.com/tasklane-ai/chat-orchestrator/internal/tool"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
	"github.com/tasklane-ai/chat-orchestrator/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat orchestrator")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-orchestrator", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Conversation store: NATS JetStream for the message log plus a KV
	// bucket for conversation records.
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	recordStore, err := natsclient.NewRecordStore(ctx, natsClient)
	if err != nil {
		log.Error("failed to open conversation record store", zap.Error(err))
		os.Exit(1)
	}

	conversationStore := store.NewNATSConversationStore(streamManager, recordStore)

	// Task store
	taskStore, err := store.NewSQLiteTaskStore(cfg.TaskDBPath)
	if err != nil {
		log.Error("failed to open task store", zap.Error(err))
		os.Exit(1)
	}
	defer taskStore.Close()

	// Reasoning provider
	var llmClient llm.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ReasoningTimeout)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ReasoningTimeout)
	default:
		log.Error("no reasoning provider configured, set ANTHROPIC_API_KEY or OPENAI_API_KEY")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create reasoning client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("reasoning provider configured", zap.String("provider", llmClient.Name()))

	// Services
	conversationSvc := service.NewConversationService(conversationStore, log)
	dispatcher := tool.NewDispatcher(taskStore, log)
	assembler := agent.NewAssembler(conversationSvc, cfg.ContextMaxMessages, cfg.ContextSizeBudget, log)
	turnSvc := service.NewTurnService(conversationSvc, dispatcher, assembler, llmClient, cfg.ReasoningModel, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(natsClient, taskStore)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	chatHandler := handler.NewChatHandler(turnSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
