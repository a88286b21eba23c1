package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"go.uber.org/zap"
)

// MakeClient posts normalized call summaries to a Make.com automation
// webhook, which appends each flat payload as a spreadsheet row. Delivery is
// at-most-once: failures are logged and never retried.
type MakeClient struct {
	HookURL    string
	HTTPClient *http.Client
}

// NewMakeClient creates a new Make.com webhook client. An empty hookURL
// disables forwarding.
func NewMakeClient(hookURL string) *MakeClient {
	return &MakeClient{
		HookURL: hookURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether a sink URL is configured.
func (c *MakeClient) Enabled() bool {
	return c.HookURL != ""
}

// Send posts a flat payload to the sink. The sink only accepts flat
// key-to-scalar rows; callers are responsible for flattening first.
func (c *MakeClient) Send(ctx context.Context, payload map[string]interface{}) error {
	if !c.Enabled() {
		logger.Base().Warn("spreadsheet storage disabled, MAKE_HOOK_URL not configured")
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sink payload: %w", err)
	}

	logger.Base().Info("sending call data to Make.com webhook",
		zap.Any("call_id", payload["call_id"]),
		zap.Int("payload_bytes", len(jsonData)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.HookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send to Make.com webhook: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the response body is not consumed.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("Make.com webhook returned HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	logger.Base().Info("call data stored in spreadsheet",
		zap.Any("call_id", payload["call_id"]),
		zap.Int("status_code", resp.StatusCode))
	return nil
}
