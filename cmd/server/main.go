package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ClareAI/astra-verify-service/internal/config"
	"github.com/ClareAI/astra-verify-service/internal/handler"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the verification call relay server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new verification call relay server
func NewServer(cfg *config.Config) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(cfg.AppEnv); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager := handler.NewHandlerManager(cfg)
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env file for local development if it exists. This will not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	server := NewServer(cfg)
	defer logger.Sync()

	if err := cfg.ValidateForCalls(); err != nil {
		// The webhook surface stays usable without call credentials; the
		// trigger endpoint reports the missing key on first use.
		logger.Base().Warn("outbound calling not fully configured", zap.Error(err))
	}
	if cfg.MakeHookURL == "" {
		logger.Base().Warn("MAKE_HOOK_URL not configured, call summaries will not be forwarded")
	}

	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("webhook_path", "/api/call/retell/ai-wbh"))

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
