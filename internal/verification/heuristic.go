// Package verification decides whether a live verification call has failed,
// based on the call transcript and structured conversation state. It is a
// best-effort classifier over agent phrasing, not ground-truth speech
// understanding: false positives and negatives are an accepted tradeoff.
package verification

import (
	"regexp"
	"strings"

	"github.com/ClareAI/astra-verify-service/pkg/logger"
	"go.uber.org/zap"
)

// Outcome is the result of a verification check. Indeterminate inputs (no
// transcript, no structured signal) report NotFailed.
type Outcome int

const (
	NotFailed Outcome = iota
	Failed
)

func (o Outcome) String() string {
	if o == Failed {
		return "failed"
	}
	return "not_failed"
}

// Thresholds gate the expected-value comparison: extracted answers at or
// below these lengths are ignored to avoid false positives on trivial or
// truncated captures. The values are tuning constants with no deeper
// rationale; keep them configurable.
type Thresholds struct {
	NameMinLen  int
	PhoneMinLen int
}

// DefaultThresholds matches the agent prompt this service is deployed with.
var DefaultThresholds = Thresholds{NameMinLen: 2, PhoneMinLen: 5}

var comparisonSeparators = regexp.MustCompile(`[\s\-()]`)

// Check reports whether the transcript or conversation state signals a
// failed identity verification. Pure function; logging is the only side
// effect. Evaluation order:
//  1. explicit flags in conversationState win immediately
//  2. no transcript means nothing to evaluate
//  3. substring scan against the failure keyword list
//  4. regex scan against the failure pattern list
//  5. expected-value comparison when a confirm-identity prompt is present
func Check(transcript string, conversationState map[string]interface{}, expectedName, expectedPhone string, th Thresholds) Outcome {
	if stateSignalsFailure(conversationState) {
		return Failed
	}

	if transcript == "" {
		logger.Base().Debug("no transcript available for verification check")
		return NotFailed
	}

	failed := hasFailureKeyword(transcript) || hasFailurePattern(transcript)

	if expectedName != "" || expectedPhone != "" {
		if expectedValueMismatch(transcript, expectedName, expectedPhone, th) {
			failed = true
		}
	}

	if failed {
		return Failed
	}
	return NotFailed
}

// FunctionCallForcesFailure reports whether an explicit function-call payload
// from the agent signals a failed verification, bypassing the transcript
// heuristic entirely.
func FunctionCallForcesFailure(funcCall map[string]interface{}) bool {
	if funcCall == nil {
		return false
	}
	switch funcCall["name"] {
	case "verification_failed", "hangup_call", "end_call":
		return true
	}
	if params, ok := funcCall["parameters"].(map[string]interface{}); ok {
		if status, present := params["verification_status"]; present && status == false {
			return true
		}
	}
	return false
}

func stateSignalsFailure(state map[string]interface{}) bool {
	if state == nil {
		return false
	}

	status, ok := state["verification_status"]
	if !ok {
		status = state["verified"]
	}
	if status == false || status == "failed" {
		logger.Base().Info("verification failed in conversation state")
		return true
	}

	if state["name_mismatch"] == true ||
		state["phone_mismatch"] == true ||
		state["identity_mismatch"] == true {
		logger.Base().Info("mismatch flag set in conversation state")
		return true
	}
	return false
}

func hasFailureKeyword(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, keyword := range failureKeywords {
		if strings.Contains(lower, keyword) {
			logger.Base().Debug("failure keyword found", zap.String("keyword", keyword))
			return true
		}
	}
	return false
}

func hasFailurePattern(transcript string) bool {
	for _, pattern := range failurePatterns {
		if pattern.MatchString(transcript) {
			logger.Base().Debug("failure pattern matched", zap.String("pattern", pattern.String()))
			return true
		}
	}
	return false
}

// expectedValueMismatch compares the caller's spoken answer against the
// expected name/phone once the agent has asked for confirmation.
func expectedValueMismatch(transcript, expectedName, expectedPhone string, th Thresholds) bool {
	nameAsked := nameQuestionPattern.MatchString(transcript)
	phoneAsked := phoneQuestionPattern.MatchString(transcript)
	if !nameAsked && !phoneAsked {
		return false
	}

	if nameAsked && expectedName != "" {
		if candidate := extractAnswer(transcript, nameAnswerPatterns); candidate != "" {
			expected := normalizeForComparison(expectedName)
			got := normalizeForComparison(candidate)
			if got != expected && len(got) > th.NameMinLen {
				logger.Base().Info("name mismatch detected",
					zap.String("expected", expected),
					zap.String("candidate", got))
				return true
			}
		}
	}

	if phoneAsked && expectedPhone != "" {
		if candidate := extractAnswer(transcript, phoneAnswerPatterns); candidate != "" {
			expected := normalizeForComparison(expectedPhone)
			got := normalizeForComparison(candidate)
			if got != expected && len(got) > th.PhoneMinLen {
				logger.Base().Info("phone mismatch detected",
					zap.String("expected", expected),
					zap.String("candidate", got))
				return true
			}
		}
	}

	if mismatchAcknowledgment.MatchString(transcript) {
		logger.Base().Info("mismatch acknowledgment detected in transcript")
		return true
	}
	return false
}

func extractAnswer(transcript string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(transcript); len(m) > 1 && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func normalizeForComparison(s string) string {
	return comparisonSeparators.ReplaceAllString(strings.ToLower(s), "")
}
