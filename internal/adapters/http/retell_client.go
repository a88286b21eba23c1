package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ClareAI/astra-verify-service/internal/phone"
	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"go.uber.org/zap"
)

// RetellClient handles communication with the Retell API.
type RetellClient struct {
	BaseURL           string
	APIKey            string
	DefaultFromNumber string
	CountryCode       string
	HTTPClient        *http.Client
}

// NewRetellClient creates a new Retell API client. defaultFromNumber may be
// empty; CreatePhoneCall then resolves the caller number from the agent
// record or the phone-number inventory.
func NewRetellClient(baseURL, apiKey, defaultFromNumber, countryCode string) *RetellClient {
	if baseURL == "" {
		baseURL = "https://api.retellai.com"
	}
	if countryCode == "" {
		countryCode = phone.DefaultCountryCode
	}
	return &RetellClient{
		BaseURL:           strings.TrimRight(baseURL, "/"),
		APIKey:            apiKey,
		DefaultFromNumber: defaultFromNumber,
		CountryCode:       countryCode,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateCallParams describes an outbound phone call to create.
type CreateCallParams struct {
	AgentID          string
	FromNumber       string // optional, resolved when empty
	ToNumber         string
	Metadata         map[string]interface{}
	DynamicVariables map[string]string
}

// CreateCallResponse is the subset of the create-phone-call response this
// service consumes.
type CreateCallResponse struct {
	CallID     string `json:"call_id"`
	AgentID    string `json:"agent_id"`
	CallStatus string `json:"call_status"`
}

// CreatePhoneCall creates an outbound phone call. The from number is
// resolved in order: params.FromNumber, the configured default, the agent
// record, the first number in the phone-number inventory.
func (c *RetellClient) CreatePhoneCall(ctx context.Context, params CreateCallParams) (*CreateCallResponse, error) {
	if c.APIKey == "" {
		return nil, &ConfigError{Msg: "RETELL_API_KEY is not configured"}
	}

	fromNumber, err := c.resolveFromNumber(ctx, params)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"agent_id":    params.AgentID,
		"from_number": fromNumber,
		"to_number":   phone.NormalizeWithCountryCode(params.ToNumber, c.CountryCode),
	}
	if params.Metadata != nil {
		payload["metadata"] = params.Metadata
	}
	if params.DynamicVariables != nil {
		payload["retell_llm_dynamic_variables"] = params.DynamicVariables
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v2/create-phone-call", nil, payload, fromNumber, params.AgentID)
	if err != nil {
		return nil, err
	}

	var resp CreateCallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode create-phone-call response: %w", err)
	}

	logger.Base().Info("call created",
		zap.String("call_id", resp.CallID),
		zap.String("to_number", payload["to_number"].(string)))
	return &resp, nil
}

// resolveFromNumber picks the outbound caller number. Every resolved value
// is re-normalized because the agent record and inventory return formatted
// numbers.
func (c *RetellClient) resolveFromNumber(ctx context.Context, params CreateCallParams) (string, error) {
	if from := strings.TrimSpace(params.FromNumber); from != "" {
		return phone.NormalizeWithCountryCode(from, c.CountryCode), nil
	}
	if from := strings.TrimSpace(c.DefaultFromNumber); from != "" {
		return phone.NormalizeWithCountryCode(from, c.CountryCode), nil
	}

	// Try the agent record first, then the phone-number inventory.
	if agent, err := c.GetAgent(ctx, params.AgentID); err == nil {
		if num, ok := agent["phone_number"].(string); ok && num != "" {
			return phone.NormalizeWithCountryCode(num, c.CountryCode), nil
		}
	} else {
		logger.Base().Debug("could not resolve from number via agent", zap.Error(err))
	}

	if numbers, err := c.ListPhoneNumbers(ctx); err == nil && len(numbers) > 0 {
		first := numbers[0]
		num, _ := first["phone_number"].(string)
		if num == "" {
			num, _ = first["number"].(string)
		}
		if num != "" {
			return phone.NormalizeWithCountryCode(num, c.CountryCode), nil
		}
	} else if err != nil {
		logger.Base().Debug("could not resolve from number via inventory", zap.Error(err))
	}

	return "", &ConfigError{Msg: "from_number is required. Provide it in the request, set RETELL_FROM_NUMBER, or configure a phone_number on your agent."}
}

// GetAgent retrieves an agent record.
func (c *RetellClient) GetAgent(ctx context.Context, agentID string) (map[string]interface{}, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/get-agent/"+agentID, nil, nil, "", agentID)
	if err != nil {
		return nil, err
	}
	var agent map[string]interface{}
	if err := json.Unmarshal(body, &agent); err != nil {
		return nil, fmt.Errorf("failed to decode agent response: %w", err)
	}
	return agent, nil
}

// ListPhoneNumbers lists the phone-number inventory. The endpoint has
// returned both a bare array and an object with a phone_numbers key.
func (c *RetellClient) ListPhoneNumbers(ctx context.Context) ([]map[string]interface{}, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/list-phone-numbers", nil, nil, "", "")
	if err != nil {
		return nil, err
	}

	var asArray []map[string]interface{}
	if err := json.Unmarshal(body, &asArray); err == nil {
		return asArray, nil
	}

	var asObject struct {
		PhoneNumbers []map[string]interface{} `json:"phone_numbers"`
	}
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, fmt.Errorf("failed to decode phone numbers response: %w", err)
	}
	return asObject.PhoneNumbers, nil
}

// GetCall retrieves a single call record.
func (c *RetellClient) GetCall(ctx context.Context, callID string) (map[string]interface{}, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/get-call/"+callID, nil, nil, "", "")
	if err != nil {
		return nil, err
	}
	var call map[string]interface{}
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("failed to decode call response: %w", err)
	}
	return call, nil
}

// ListCallsParams filters the list-calls endpoint.
type ListCallsParams struct {
	Limit      int
	SortOrder  string
	CallStatus []string
}

// ListCalls lists recent calls.
func (c *RetellClient) ListCalls(ctx context.Context, params ListCallsParams) ([]map[string]interface{}, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	if params.SortOrder != "" {
		query.Set("sort_order", params.SortOrder)
	}
	for _, status := range params.CallStatus {
		query.Add("filter_criteria[call_status]", status)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/v2/list-calls", query, nil, "", "")
	if err != nil {
		return nil, err
	}
	var calls []map[string]interface{}
	if err := json.Unmarshal(body, &calls); err != nil {
		return nil, fmt.Errorf("failed to decode calls response: %w", err)
	}
	return calls, nil
}

// HangupCall marks an in-progress call for termination.
func (c *RetellClient) HangupCall(ctx context.Context, callID string) error {
	payload := map[string]interface{}{"end_call": true}
	if _, err := c.doRequest(ctx, http.MethodPatch, "/v2/update-call/"+callID, nil, payload, "", ""); err != nil {
		return fmt.Errorf("failed to hang up call %s: %w", callID, err)
	}
	logger.Base().Info("call hung up via Retell API", zap.String("call_id", callID))
	return nil
}

// LinkPhoneNumberToAgent sets the outbound agent for a phone number. Fixes
// the "No outbound agent id set up" rejection without going through the
// dashboard.
func (c *RetellClient) LinkPhoneNumberToAgent(ctx context.Context, phoneNumber, agentID string) error {
	normalized := phone.NormalizeWithCountryCode(phoneNumber, c.CountryCode)
	payload := map[string]interface{}{"outbound_agent_id": agentID}
	path := "/v2/update-phone-number/" + url.PathEscape(normalized)
	if _, err := c.doRequest(ctx, http.MethodPatch, path, nil, payload, normalized, agentID); err != nil {
		return fmt.Errorf("failed to link phone number %s: %w", normalized, err)
	}
	logger.Base().Info("phone number linked to agent",
		zap.String("phone_number", normalized),
		zap.String("agent_id", agentID))
	return nil
}

// doRequest issues one API request and maps failures onto the error
// taxonomy. fromNumber and agentID are only used to render remediation
// guidance in configuration errors.
func (c *RetellClient) doRequest(ctx context.Context, method, path string, query url.Values, payload interface{}, fromNumber, agentID string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, &ConfigError{Msg: "RETELL_API_KEY is not configured"}
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isNetworkClass(err) {
			return nil, &NetworkError{
				Msg: fmt.Sprintf("network error connecting to Retell API: %v. Check your internet connection, DNS settings, and RETELL_API_BASE_URL, then try again.", err),
				Err: err,
			}
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, c.apiError(resp.StatusCode, bodyBytes, fromNumber, agentID)
	}
	return bodyBytes, nil
}

// apiError classifies a non-2xx provider response.
func (c *RetellClient) apiError(statusCode int, body []byte, fromNumber, agentID string) error {
	message := extractErrorMessage(body)

	if strings.Contains(message, "No outbound agent id set up for phone number") {
		return &ConfigError{
			Msg: fmt.Sprintf(
				"Retell API error: %s\n\nSOLUTION: Link your phone number to your agent in the Retell Dashboard:\n1. Go to https://retellai.com > Phone Numbers\n2. Click on your phone number: %s\n3. Set \"Outbound Agent\" to: %s\n4. Save and try again.\n\nAlternatively, link it via API:\nPATCH /v2/update-phone-number/%s\nBody: {\"outbound_agent_id\": \"%s\"}",
				message, fromNumber, agentID, url.PathEscape(fromNumber), agentID),
		}
	}

	return &ProviderError{
		StatusCode: statusCode,
		Msg:        fmt.Sprintf("Retell API error: %s", message),
	}
}

// extractErrorMessage pulls a human-readable message out of an error body,
// which may be a bare string, {"message": ...} or {"error": ...}.
func extractErrorMessage(body []byte) string {
	var asObject map[string]interface{}
	if err := json.Unmarshal(body, &asObject); err == nil {
		if msg, ok := asObject["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := asObject["error"].(string); ok && msg != "" {
			return msg
		}
		return string(body)
	}
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil && asString != "" {
		return asString
	}
	return string(body)
}
