package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*RetellClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewRetellClient(server.URL, "test-key", "", "+1")
	return client, server
}

func TestCreatePhoneCallNormalizesNumbers(t *testing.T) {
	var captured map[string]interface{}
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/create-phone-call", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "call_1", "call_status": "registered"})
	}))
	defer server.Close()

	resp, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:    "agent_1",
		FromNumber: "+1 (555) 010-0000",
		ToNumber:   "3135551234",
		Metadata:   map[string]interface{}{"name": "Jane Doe"},
		DynamicVariables: map[string]string{
			"expected_name": "Jane Doe",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "call_1", resp.CallID)

	assert.Equal(t, "agent_1", captured["agent_id"])
	assert.Equal(t, "+15550100000", captured["from_number"])
	assert.Equal(t, "+13135551234", captured["to_number"])
	assert.Equal(t, "Jane Doe", captured["metadata"].(map[string]interface{})["name"])
	assert.Equal(t, "Jane Doe", captured["retell_llm_dynamic_variables"].(map[string]interface{})["expected_name"])
}

func TestCreatePhoneCallResolvesFromAgent(t *testing.T) {
	var captured map[string]interface{}
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/get-agent/agent_1":
			_ = json.NewEncoder(w).Encode(map[string]string{"agent_id": "agent_1", "phone_number": "555-010-0000"})
		case "/v2/create-phone-call":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "call_2"})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:  "agent_1",
		ToNumber: "3135551234",
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550100000", captured["from_number"])
}

func TestCreatePhoneCallResolvesFromInventory(t *testing.T) {
	var captured map[string]interface{}
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/get-agent/agent_1":
			http.Error(w, `{"message": "agent lookup unavailable"}`, http.StatusNotFound)
		case "/v2/list-phone-numbers":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"phone_number": "+15550100000"}})
		case "/v2/create-phone-call":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "call_3"})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:  "agent_1",
		ToNumber: "3135551234",
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550100000", captured["from_number"])
}

func TestCreatePhoneCallNoFromNumber(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/get-agent/agent_1":
			_ = json.NewEncoder(w).Encode(map[string]string{"agent_id": "agent_1"})
		case "/v2/list-phone-numbers":
			_ = json.NewEncoder(w).Encode([]map[string]string{})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:  "agent_1",
		ToNumber: "3135551234",
	})
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Msg, "from_number is required")
}

func TestCreatePhoneCallMissingAPIKey(t *testing.T) {
	client := NewRetellClient("https://api.retellai.com", "", "", "+1")
	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{AgentID: "a", ToNumber: "3135551234"})
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Msg, "RETELL_API_KEY")
}

func TestCreatePhoneCallUnlinkedNumber(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "No outbound agent id set up for phone number +15550100000",
		})
	}))
	defer server.Close()

	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:    "agent_1",
		FromNumber: "+15550100000",
		ToNumber:   "3135551234",
	})
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Msg, "SOLUTION")
	assert.Contains(t, configErr.Msg, "agent_1")
}

func TestCreatePhoneCallProviderError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient balance"})
	}))
	defer server.Close()

	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:    "agent_1",
		FromNumber: "+15550100000",
		ToNumber:   "3135551234",
	})
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusPaymentRequired, providerErr.StatusCode)
	assert.Contains(t, providerErr.Msg, "insufficient balance")
}

func TestCreatePhoneCallNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close() // connection refused from here on

	client := NewRetellClient(url, "test-key", "+15550100000", "+1")
	_, err := client.CreatePhoneCall(context.Background(), CreateCallParams{
		AgentID:  "agent_1",
		ToNumber: "3135551234",
	})
	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	assert.Contains(t, networkErr.Msg, "network error")
}

func TestListPhoneNumbersObjectShape(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"phone_numbers": []map[string]string{{"number": "+15550100000"}},
		})
	}))
	defer server.Close()

	numbers, err := client.ListPhoneNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, numbers, 1)
	assert.Equal(t, "+15550100000", numbers[0]["number"])
}

func TestHangupCall(t *testing.T) {
	var captured map[string]interface{}
	var method, path string
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "call_1"})
	}))
	defer server.Close()

	require.NoError(t, client.HangupCall(context.Background(), "call_1"))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/v2/update-call/call_1", path)
	assert.Equal(t, true, captured["end_call"])
}

func TestLinkPhoneNumberToAgent(t *testing.T) {
	var captured map[string]interface{}
	var path string
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	require.NoError(t, client.LinkPhoneNumberToAgent(context.Background(), "555-010-0000", "agent_1"))
	assert.Equal(t, "/v2/update-phone-number/+15550100000", path)
	assert.Equal(t, "agent_1", captured["outbound_agent_id"])
}

func TestGetCall(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/get-call/call_9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"call_id":     "call_9",
			"call_status": "ended",
			"duration_ms": 61000,
		})
	}))
	defer server.Close()

	record, err := client.GetCall(context.Background(), "call_9")
	require.NoError(t, err)
	assert.Equal(t, "call_9", record["call_id"])
	assert.Equal(t, "ended", record["call_status"])
}

func TestListCallsQueryParams(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/list-calls", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "5", query.Get("limit"))
		assert.Equal(t, "descending", query.Get("sort_order"))
		assert.Equal(t, []string{"ended", "error"}, query["filter_criteria[call_status]"])
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"call_id": "call_1"},
			{"call_id": "call_2"},
		})
	}))
	defer server.Close()

	calls, err := client.ListCalls(context.Background(), ListCallsParams{
		Limit:      5,
		SortOrder:  "descending",
		CallStatus: []string{"ended", "error"},
	})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0]["call_id"])
}
