package call

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClareAI/astra-verify-service/internal/retell"
)

// customFieldSources are the nested locations the provider has used for
// post-call structured extraction, in priority order. The first present
// object wins.
var customFieldSources = []string{
	"custom_data",
	"custom_call_data",
	"post_call_data",
	"data_extraction",
	"extracted_data",
}

// NormalizeCallSummary flattens a completed call into the fixed scalar
// schema the spreadsheet sink expects. Booleans that drive spreadsheet
// filters are additionally coerced to enumerated strings.
func NormalizeCallSummary(ev *retell.Event) map[string]interface{} {
	analysis := ev.CallAnalysis
	if analysis == nil {
		analysis = map[string]interface{}{}
	}

	callStatus := ev.CallStatus
	if callStatus == "" {
		callStatus = "unknown"
	}

	expectedName, expectedPhone := expectedIdentity(ev)

	verified := analysis["verified"] == true || analysis["verification_status"] == "verified"
	verificationStatus := "not_verified"
	if verified {
		verificationStatus = "verified"
	}

	callSuccessful := false
	if v, ok := analysis["call_successful"].(bool); ok {
		callSuccessful = v
	}

	summary := map[string]interface{}{
		"call_id":     ev.CallID,
		"call_status": callStatus,

		"name":  expectedName,
		"phone": expectedPhone,

		"from_number":      ev.FromNumber,
		"to_number":        ev.ToNumber,
		"duration_seconds": roundMsToSeconds(ev.DurationMs),

		"transcript":      ev.Transcript,
		"call_summary":    stringValue(analysis["call_summary"]),
		"call_successful": callSuccessful,

		"verified":            verified,
		"verification_status": verificationStatus,

		"expected_name":  expectedName,
		"expected_phone": expectedPhone,

		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	for _, source := range customFieldSources {
		if custom, ok := analysis[source].(map[string]interface{}); ok {
			for key, value := range custom {
				flattenInto(summary, key, value)
			}
			break
		}
	}

	return summary
}

// expectedIdentity resolves the trigger-time name and phone, preferring the
// metadata attached at call creation over the dynamic-variable aliases.
func expectedIdentity(ev *retell.Event) (string, string) {
	name := ""
	phoneNum := ""
	if ev.Metadata != nil {
		name = stringValue(ev.Metadata["name"])
		phoneNum = stringValue(ev.Metadata["phone"])
	}
	if ev.DynamicVariables != nil {
		if name == "" {
			name = stringValue(ev.DynamicVariables["full_name"])
		}
		if name == "" {
			name = stringValue(ev.DynamicVariables["expected_name"])
		}
		if phoneNum == "" {
			phoneNum = stringValue(ev.DynamicVariables["phone_number"])
		}
		if phoneNum == "" {
			phoneNum = stringValue(ev.DynamicVariables["expected_phone"])
		}
	}
	return name, phoneNum
}

// roundMsToSeconds converts milliseconds to whole seconds, rounding half up
// (45499ms is 45s, 45500ms is 46s).
func roundMsToSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return (ms + 500) / 1000
}

// flattenInto writes value under key, recursing into nested objects with
// underscore-joined keys and joining arrays with ", " so every cell stays a
// scalar.
func flattenInto(out map[string]interface{}, key string, value interface{}) {
	switch v := value.(type) {
	case nil:
		out[key] = ""
	case map[string]interface{}:
		for childKey, childValue := range v {
			flattenInto(out, key+"_"+childKey, childValue)
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, scalarString(item))
		}
		out[key] = strings.Join(parts, ", ")
	case string, bool, float64, int, int64:
		out[key] = v
	default:
		out[key] = scalarString(v)
	}
}

// scalarString renders an arbitrary value as a single spreadsheet cell.
func scalarString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringValue(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return scalarString(value)
}
