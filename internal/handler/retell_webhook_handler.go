package handler

import (
	"io"
	"net/http"

	"github.com/ClareAI/astra-verify-service/internal/retell"
	"github.com/ClareAI/astra-verify-service/internal/services/call"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RetellWebhookHandler receives call events from Retell. Recognized bodies
// always answer 200: Retell retries deliveries on non-2xx and nothing in the
// in-call or completion paths is worth a retry storm. 400 is reserved for
// payloads with no resolvable call id.
type RetellWebhookHandler struct {
	service      *call.VerificationCallService
	debugWebhook bool
}

// NewRetellWebhookHandler creates a new Retell webhook handler.
func NewRetellWebhookHandler(service *call.VerificationCallService, debugWebhook bool) *RetellWebhookHandler {
	return &RetellWebhookHandler{
		service:      service,
		debugWebhook: debugWebhook,
	}
}

// webhookResponse is the minimal acknowledgment Retell expects.
type webhookResponse struct {
	Msg    string `json:"msg"`
	Action string `json:"action,omitempty"`
}

// SetupRetellRoutes registers the webhook routes.
func (h *RetellWebhookHandler) SetupRetellRoutes(router *mux.Router) {
	callRouter := router.PathPrefix("/api/call").Subrouter()

	// POST /api/call/retell/ai-wbh - Retell call event webhook
	callRouter.HandleFunc("/retell/ai-wbh", h.HandleRetellWebhook).Methods("POST")

	// POST /api/call/retell/test/make-webhook - forward a synthetic record to the sink
	callRouter.HandleFunc("/retell/test/make-webhook", h.HandleTestMakeWebhook).Methods("POST")

	logger.Base().Info("retell webhook routes registered")
}

// HandleRetellWebhook processes a Retell call event.
// POST /api/call/retell/ai-wbh
func (h *RetellWebhookHandler) HandleRetellWebhook(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if h.debugWebhook {
		logger.Base().Debug("raw webhook body", zap.ByteString("body", bodyBytes))
	}

	ev, err := retell.ParseEvent(bodyBytes)
	if err != nil {
		logger.Base().Warn("rejected webhook payload", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid webhook payload"})
		return
	}

	logger.Base().Info("retell webhook received",
		zap.String("event", ev.Type),
		zap.String("call_id", ev.CallID),
		zap.String("call_status", ev.CallStatus),
		zap.Int("transcript_length", len(ev.Transcript)),
		zap.Bool("has_conversation_state", ev.ConversationState != nil),
		zap.Bool("has_function_call", ev.FunctionCall != nil),
		zap.Bool("has_metadata", ev.Metadata != nil),
		zap.Bool("has_dynamic_vars", ev.DynamicVariables != nil))

	switch ev.Classify() {
	case retell.ClassInCall:
		if hungUp := h.service.HandleInCallEvent(r.Context(), ev); hungUp {
			logger.Base().Info("call hung up due to verification failure", zap.String("call_id", ev.CallID))
			writeJSON(w, http.StatusOK, webhookResponse{Msg: "OK", Action: "call_hung_up"})
			return
		}
	case retell.ClassCompletion:
		h.service.HandleCompletionEvent(ev)
	default:
		logger.Base().Info("unrecognized webhook event, ignoring",
			zap.String("event", ev.Type),
			zap.String("call_id", ev.CallID))
	}

	writeJSON(w, http.StatusOK, webhookResponse{Msg: "OK"})
}

// HandleTestMakeWebhook forwards a synthetic record to the sink.
// POST /api/call/retell/test/make-webhook
func (h *RetellWebhookHandler) HandleTestMakeWebhook(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ForwardTestRecord(r.Context())
	if err != nil {
		logger.Base().Error("test forward failed", zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(w, "Test record forwarded to Make.com webhook", summary)
}
