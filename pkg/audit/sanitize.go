package audit

import "strings"

// RedactedPlaceholder replaces any parameter value whose key names a
// sensitive field.
const RedactedPlaceholder = "***REDACTED***"

// maxParameterValueLength truncates long string values before logging.
const maxParameterValueLength = 100

var sensitiveKeySubstrings = []string{"password", "token", "secret", "api_key", "auth", "credential"}

// SanitizeParameters replaces any value whose key contains a sensitive
// substring with an opaque marker, and truncates long string values
// (spec.md §3 "Audit Record" / §8 "no sanitized parameter value contains any
// of the substrings password|token|secret|api_key|auth|credential as a key
// name").
func SanitizeParameters(params map[string]any) map[string]any {
	sanitized := make(map[string]any, len(params))
	for key, value := range params {
		if isSensitiveKey(key) {
			sanitized[key] = RedactedPlaceholder
			continue
		}
		if s, ok := value.(string); ok && len(s) > maxParameterValueLength {
			sanitized[key] = s[:maxParameterValueLength] + "..."
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, substr := range sensitiveKeySubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}
