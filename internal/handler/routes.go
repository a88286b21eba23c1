package handler

import (
	"net/http"
	"time"

	httpadapter "github.com/ClareAI/astra-verify-service/internal/adapters/http"
	"github.com/ClareAI/astra-verify-service/internal/config"
	"github.com/ClareAI/astra-verify-service/internal/services/call"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"github.com/gorilla/mux"
)

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config       *config.Config
	service      *call.VerificationCallService
	retellClient *httpadapter.RetellClient
	sink         *httpadapter.MakeClient
}

// NewHandlerManager creates all clients and services from validated
// configuration and wires them into the handlers. There is no lazy
// initialization: a missing credential surfaces as a classified error on
// first use, not as a construction failure.
func NewHandlerManager(cfg *config.Config) *HandlerManager {
	retellClient := httpadapter.NewRetellClient(cfg.RetellBaseURL, cfg.RetellAPIKey, cfg.RetellFromNumber, cfg.DefaultCountryCode)
	sink := httpadapter.NewMakeClient(cfg.MakeHookURL)
	service := call.NewVerificationCallService(cfg, retellClient, sink)

	return &HandlerManager{
		config:       cfg,
		service:      service,
		retellClient: retellClient,
		sink:         sink,
	}
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	// Apply global middleware
	router.Use(RecoverMiddleware)
	router.Use(CORSMiddleware(hm.config.CORSOrigin))
	router.Use(LoggingMiddleware)

	// Liveness
	router.HandleFunc("/health", hm.HandleHealth).Methods("GET")

	demoHandler := NewDemoHandler(hm.service, hm.sink.Enabled())
	demoHandler.SetupDemoRoutes(router)

	webhookHandler := NewRetellWebhookHandler(hm.service, hm.config.DebugWebhook)
	webhookHandler.SetupRetellRoutes(router)

	router.NotFoundHandler = notFoundHandler()

	logger.Base().Info("all application routes registered")
}

// HandleHealth responds to liveness probes.
// GET /health
func (hm *HandlerManager) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetService returns the verification call service
func (hm *HandlerManager) GetService() *call.VerificationCallService {
	return hm.service
}

// GetRetellClient returns the Retell API client
func (hm *HandlerManager) GetRetellClient() *httpadapter.RetellClient {
	return hm.retellClient
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusNotFound, "Route not found")
	})
}
