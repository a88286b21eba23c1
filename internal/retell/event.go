// Package retell normalizes inbound Retell webhook payloads. The provider
// has shipped several shapes for the same logical fields (top-level vs nested
// under "data" or "call", snake vs camel case), so every field is resolved
// through an ordered fallback chain over the raw JSON tree.
package retell

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned when the webhook body is not a JSON object.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// ErrNoCallID is returned when no call identifier can be resolved from any
// known location in the payload.
var ErrNoCallID = errors.New("webhook payload has no resolvable call id")

// EventClass buckets an event for downstream routing.
type EventClass int

const (
	// ClassUnknown events are logged and otherwise inert.
	ClassUnknown EventClass = iota
	// ClassInCall events arrive while the call is live and feed the
	// real-time verification path.
	ClassInCall
	// ClassCompletion events mark the end of a call and trigger summary
	// forwarding.
	ClassCompletion
)

// inCallEvents are event names delivered while the call is in progress.
var inCallEvents = map[string]bool{
	"function_call":      true,
	"response_audio":     true,
	"conversation_state": true,
	"update":             true,
	"transcription":      true,
	"status_update":      true,
}

// completionEvents are event names that mark the end of a call.
var completionEvents = map[string]bool{
	"call_ended":    true,
	"call_analysis": true,
	"ended":         true,
}

// terminalStatuses are call_status values that mean the call is over.
var terminalStatuses = map[string]bool{
	"ended":     true,
	"completed": true,
}

// Field name candidates, in priority order. Each is tried at the top level
// first, then inside the data object (see dataPaths).
var (
	eventChain      = []string{"event", "type", "status"}
	callIDChain     = []string{"call_id", "callId", "id"}
	callStatusChain = []string{"call_status", "status"}
	transcriptChain = []string{"transcript"}
	analysisChain   = []string{"call_analysis"}
	metadataChain   = []string{"metadata"}
	convStateChain  = []string{"conversation_state"}
	funcCallChain   = []string{"function_call"}
	dynVarsChain    = []string{"retell_llm_dynamic_variables", "dynamic_variables"}
	fromNumberChain = []string{"from_number"}
	toNumberChain   = []string{"to_number"}
	durationChain   = []string{"duration_ms"}
)

// dataPaths locate the nested call object; the empty string is the
// self-referential fallback for flat payloads.
var dataPaths = []string{"data", "call", ""}

// Event is the canonical record extracted from a webhook delivery.
type Event struct {
	Type              string
	CallID            string
	CallStatus        string
	Transcript        string
	FromNumber        string
	ToNumber          string
	DurationMs        int64
	CallAnalysis      map[string]interface{}
	Metadata          map[string]interface{}
	ConversationState map[string]interface{}
	FunctionCall      map[string]interface{}
	DynamicVariables  map[string]interface{}
}

// ParseEvent extracts a canonical Event from a raw webhook body. It fails
// only when the body is not a JSON object or when no call id can be found in
// any fallback location; everything else is best-effort.
func ParseEvent(body []byte) (*Event, error) {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrInvalidPayload
	}

	data := resolveData(root)

	ev := &Event{
		Type:              firstString(root, data, eventChain),
		CallID:            firstString(root, data, callIDChain),
		CallStatus:        firstString(root, data, callStatusChain),
		Transcript:        firstString(root, data, transcriptChain),
		FromNumber:        firstString(root, data, fromNumberChain),
		ToNumber:          firstString(root, data, toNumberChain),
		DurationMs:        firstInt(root, data, durationChain),
		CallAnalysis:      firstMap(root, data, analysisChain),
		Metadata:          firstMap(root, data, metadataChain),
		ConversationState: firstMap(root, data, convStateChain),
		FunctionCall:      firstMap(root, data, funcCallChain),
		DynamicVariables:  firstMap(root, data, dynVarsChain),
	}

	if ev.CallID == "" {
		return nil, ErrNoCallID
	}
	return ev, nil
}

// Classify buckets the event. A terminal call_status counts as completion
// even under an unrecognized event name; upstream event naming has drifted
// before and a missed completion means a silently dropped summary.
func (e *Event) Classify() EventClass {
	if inCallEvents[e.Type] {
		return ClassInCall
	}
	if completionEvents[e.Type] || terminalStatuses[e.CallStatus] {
		return ClassCompletion
	}
	return ClassUnknown
}

// resolveData returns the nested call object, falling back to the root for
// flat payloads.
func resolveData(root gjson.Result) gjson.Result {
	for _, path := range dataPaths {
		if path == "" {
			return root
		}
		if v := root.Get(path); v.IsObject() {
			return v
		}
	}
	return root
}

// firstString returns the first defined value for the field chain, trying
// every name at the top level before descending into the data object.
func firstString(root, data gjson.Result, chain []string) string {
	if v, ok := firstResult(root, data, chain); ok {
		return v.String()
	}
	return ""
}

func firstInt(root, data gjson.Result, chain []string) int64 {
	if v, ok := firstResult(root, data, chain); ok {
		return v.Int()
	}
	return 0
}

func firstMap(root, data gjson.Result, chain []string) map[string]interface{} {
	if v, ok := firstResult(root, data, chain); ok && v.IsObject() {
		if m, isMap := v.Value().(map[string]interface{}); isMap {
			return m
		}
	}
	return nil
}

func firstResult(root, data gjson.Result, chain []string) (gjson.Result, bool) {
	for _, name := range chain {
		if v := root.Get(name); v.Exists() {
			return v, true
		}
	}
	for _, name := range chain {
		if v := data.Get(name); v.Exists() {
			return v, true
		}
	}
	return gjson.Result{}, false
}
