package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	httpadapter "github.com/ClareAI/astra-verify-service/internal/adapters/http"
	"github.com/ClareAI/astra-verify-service/internal/phone"
	"github.com/ClareAI/astra-verify-service/internal/services/call"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DemoHandler exposes the manual trigger endpoint for verification calls.
type DemoHandler struct {
	service     *call.VerificationCallService
	sinkEnabled bool
}

// NewDemoHandler creates a new demo handler.
func NewDemoHandler(service *call.VerificationCallService, sinkEnabled bool) *DemoHandler {
	return &DemoHandler{
		service:     service,
		sinkEnabled: sinkEnabled,
	}
}

// TriggerCallRequest is the body for POST /api/demo/trigger-call.
type TriggerCallRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SetupDemoRoutes registers the demo routes.
func (h *DemoHandler) SetupDemoRoutes(router *mux.Router) {
	demoRouter := router.PathPrefix("/api/demo").Subrouter()

	// POST /api/demo/trigger-call - trigger an outbound verification call
	demoRouter.HandleFunc("/trigger-call", h.HandleTriggerCall).Methods("POST")

	// GET /api/demo/call/{callId} - retrieve a call record from Retell
	demoRouter.HandleFunc("/call/{callId}", h.HandleGetCall).Methods("GET")

	// GET /api/demo/calls - list recent calls, newest first
	demoRouter.HandleFunc("/calls", h.HandleListCalls).Methods("GET")

	logger.Base().Info("demo routes registered")
}

// HandleTriggerCall triggers an outbound verification call.
// POST /api/demo/trigger-call
func (h *DemoHandler) HandleTriggerCall(w http.ResponseWriter, r *http.Request) {
	var request TriggerCallRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.Name == "" || request.Phone == "" {
		errorResponse(w, http.StatusBadRequest, "Name and phone are required")
		return
	}
	if !phone.IsValid(request.Phone) {
		errorResponse(w, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	if h.sinkEnabled {
		logger.Base().Info("spreadsheet storage enabled, call data will be stored on completion")
	} else {
		logger.Base().Warn("spreadsheet storage disabled, MAKE_HOOK_URL not configured")
	}

	record, err := h.service.TriggerCall(r.Context(), request.Name, request.Phone)
	if err != nil {
		logger.Base().Error("failed to trigger verification call",
			zap.String("name", request.Name),
			zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, triggerErrorMessage(err))
		return
	}

	logger.Base().Info("call initiated",
		zap.String("call_id", record.CallID),
		zap.String("phone", record.Phone))

	successResponse(w, "Call initiated successfully. AI agent will verify name and phone number.", map[string]interface{}{
		"callId": record.CallID,
		"name":   record.Name,
		"phone":  record.Phone,
		"status": "initiated",
	})
}

// HandleGetCall retrieves a single call record from the provider.
// GET /api/demo/call/{callId}
func (h *DemoHandler) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["callId"]
	if callID == "" {
		errorResponse(w, http.StatusBadRequest, "Call ID is required")
		return
	}

	record, err := h.service.GetCall(r.Context(), callID)
	if err != nil {
		logger.Base().Error("failed to retrieve call",
			zap.String("call_id", callID),
			zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, triggerErrorMessage(err))
		return
	}
	successResponse(w, "", record)
}

// HandleListCalls lists recent calls, newest first.
// GET /api/demo/calls?limit=N
func (h *DemoHandler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	calls, err := h.service.ListRecentCalls(r.Context(), limit)
	if err != nil {
		logger.Base().Error("failed to list calls", zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, triggerErrorMessage(err))
		return
	}
	successResponse(w, "", map[string]interface{}{
		"count": len(calls),
		"calls": calls,
	})
}

// triggerErrorMessage surfaces classified errors with their remediation text
// and hides everything else behind a generic message.
func triggerErrorMessage(err error) string {
	var configErr *httpadapter.ConfigError
	if errors.As(err, &configErr) {
		return configErr.Msg
	}
	var networkErr *httpadapter.NetworkError
	if errors.As(err, &networkErr) {
		return networkErr.Msg
	}
	var providerErr *httpadapter.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Msg
	}
	return "Failed to initiate call"
}
