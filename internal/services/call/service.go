// Package call implements the verification call workflow: triggering
// outbound calls, evaluating in-call webhook events against the verification
// heuristic, hanging up on mismatch, and forwarding completed-call summaries
// to the spreadsheet sink.
package call

import (
	"context"
	"fmt"
	"time"

	httpadapter "github.com/ClareAI/astra-verify-service/internal/adapters/http"
	"github.com/ClareAI/astra-verify-service/internal/config"
	"github.com/ClareAI/astra-verify-service/internal/phone"
	"github.com/ClareAI/astra-verify-service/internal/retell"
	"github.com/ClareAI/astra-verify-service/internal/verification"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"go.uber.org/zap"
)

// forwardTimeout bounds the detached sink delivery once the webhook response
// has already been written.
const forwardTimeout = 30 * time.Second

// CallRecord is returned to the caller of the trigger endpoint. The provider
// owns all call state from this point on.
type CallRecord struct {
	CallID string `json:"callId"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// VerificationCallService wires the Retell client, the verification
// heuristic and the sink client together. Stateless; safe for concurrent use.
type VerificationCallService struct {
	cfg        *config.Config
	retell     *httpadapter.RetellClient
	sink       *httpadapter.MakeClient
	thresholds verification.Thresholds
}

// NewVerificationCallService creates the service from validated configuration.
func NewVerificationCallService(cfg *config.Config, retellClient *httpadapter.RetellClient, sink *httpadapter.MakeClient) *VerificationCallService {
	return &VerificationCallService{
		cfg:    cfg,
		retell: retellClient,
		sink:   sink,
		thresholds: verification.Thresholds{
			NameMinLen:  cfg.NameMatchMinLen,
			PhoneMinLen: cfg.PhoneMatchMinLen,
		},
	}
}

// TriggerCall places an outbound verification call. The agent receives the
// expected identity both as metadata and as dynamic prompt variables; the
// expected_* aliases feed the downstream matching logic.
func (s *VerificationCallService) TriggerCall(ctx context.Context, name, rawPhone string) (*CallRecord, error) {
	if err := s.cfg.ValidateForCalls(); err != nil {
		return nil, &httpadapter.ConfigError{Msg: err.Error()}
	}

	normalizedPhone := phone.NormalizeWithCountryCode(rawPhone, s.cfg.DefaultCountryCode)

	logger.Base().Info("triggering verification call",
		zap.String("name", name),
		zap.String("phone", normalizedPhone))

	resp, err := s.retell.CreatePhoneCall(ctx, httpadapter.CreateCallParams{
		AgentID:  s.cfg.RetellAgentID,
		ToNumber: normalizedPhone,
		Metadata: map[string]interface{}{
			"name":                 name,
			"phone":                normalizedPhone,
			"verificationRequired": true,
		},
		DynamicVariables: map[string]string{
			"full_name":      name,
			"phone_number":   normalizedPhone,
			"expected_name":  name,
			"expected_phone": normalizedPhone,
		},
	})
	if err != nil {
		return nil, err
	}

	return &CallRecord{
		CallID: resp.CallID,
		Name:   name,
		Phone:  normalizedPhone,
	}, nil
}

// GetCall retrieves the full provider record for a call.
func (s *VerificationCallService) GetCall(ctx context.Context, callID string) (map[string]interface{}, error) {
	return s.retell.GetCall(ctx, callID)
}

// ListRecentCalls lists the most recent calls, newest first.
func (s *VerificationCallService) ListRecentCalls(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.retell.ListCalls(ctx, httpadapter.ListCallsParams{
		Limit:     limit,
		SortOrder: "descending",
	})
}

// HandleInCallEvent runs the verification heuristic against a live-call
// event and hangs up on failure. It returns true only when a hangup was
// actually issued successfully; a hangup attempt that errors is logged and
// reported as false so the webhook still completes with 200.
func (s *VerificationCallService) HandleInCallEvent(ctx context.Context, ev *retell.Event) bool {
	expectedName, expectedPhone := expectedIdentity(ev)

	outcome := verification.Check(ev.Transcript, ev.ConversationState, expectedName, expectedPhone, s.thresholds)
	failed := outcome == verification.Failed

	if verification.FunctionCallForcesFailure(ev.FunctionCall) {
		failed = true
	}

	if !failed {
		return false
	}

	logger.Base().Info("verification failed, hanging up call",
		zap.String("call_id", ev.CallID),
		zap.String("expected_name", expectedName),
		zap.String("expected_phone", expectedPhone))

	if err := s.retell.HangupCall(ctx, ev.CallID); err != nil {
		logger.Base().Error("failed to hang up call",
			zap.String("call_id", ev.CallID),
			zap.Error(err))
		return false
	}
	return true
}

// HandleCompletionEvent logs the final verification verdict and forwards the
// normalized summary to the sink. Forwarding runs detached from the webhook
// response path: the provider retries on non-2xx and a sink outage must not
// cause a retry storm.
func (s *VerificationCallService) HandleCompletionEvent(ev *retell.Event) {
	logger.Base().Info("call completed",
		zap.String("call_id", ev.CallID),
		zap.String("call_status", ev.CallStatus),
		zap.Int64("duration_ms", ev.DurationMs))

	if ev.CallAnalysis != nil {
		verified := ev.CallAnalysis["verified"] == true ||
			ev.CallAnalysis["verification_status"] == "verified"
		if verified {
			logger.Base().Info("verification successful, call proceeded", zap.String("call_id", ev.CallID))
		} else {
			logger.Base().Info("verification failed or call hung up", zap.String("call_id", ev.CallID))
		}
	}

	summary := NormalizeCallSummary(ev)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		if err := s.sink.Send(ctx, summary); err != nil {
			logger.Base().Error("failed to forward call summary",
				zap.String("call_id", ev.CallID),
				zap.Error(err))
		}
	}()
}

// ForwardTestRecord sends a synthetic summary to the sink so operators can
// verify the Make.com scenario end to end without placing a call.
func (s *VerificationCallService) ForwardTestRecord(ctx context.Context) (map[string]interface{}, error) {
	ev := &retell.Event{
		Type:       "call_ended",
		CallID:     fmt.Sprintf("test_%d", time.Now().Unix()),
		CallStatus: "ended",
		FromNumber: "+15550100000",
		ToNumber:   "+15550100001",
		DurationMs: 61000,
		Transcript: "Agent: May I confirm your name? Caller: This is a test record.",
		Metadata: map[string]interface{}{
			"name":  "Test User",
			"phone": "+15550100001",
		},
		CallAnalysis: map[string]interface{}{
			"call_summary":    "Synthetic record generated by the test endpoint.",
			"call_successful": true,
			"verified":        true,
		},
	}

	summary := NormalizeCallSummary(ev)
	if err := s.sink.Send(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}
