package masking

import (
	"encoding/json"
	"strings"
)

// MaskedAccountValue is the replacement string for masked account/card
// field values.
const MaskedAccountValue = "[MASKED_ACCOUNT_DATA]"

// sensitiveAccountFields names JSON fields in MCP tool results that carry
// account- or payment-identifying data: account balances, transfer and
// beneficiary records surfaced by the account/transaction/payment MCP
// servers (spec.md §4.7's DataAccessed keys name the same fields).
var sensitiveAccountFields = map[string]bool{
	"account_number":           true,
	"sender_account_number":    true,
	"recipient_account_number": true,
	"card_number":              true,
	"cvv":                      true,
	"pin":                      true,
	"iban":                     true,
	"routing_number":           true,
	"national_id":              true,
	"tax_id":                   true,
}

// AccountDataMasker masks sensitive account/card fields in JSON-shaped MCP
// tool results while leaving non-sensitive fields (transaction IDs,
// descriptions, timestamps, balances) untouched. Grounded on teacher's
// KubernetesSecretMasker: same parse-walk-reserialize shape and
// defensive-on-error contract, adapted from Kubernetes Secret/ConfigMap YAML
// to this module's JSON account/transaction payloads.
type AccountDataMasker struct{}

// Name returns the unique identifier for this masker.
func (m *AccountDataMasker) Name() string { return "account_data" }

// AppliesTo performs a lightweight check on whether this masker should
// process the data.
func (m *AccountDataMasker) AppliesTo(data string) bool {
	for field := range sensitiveAccountFields {
		if strings.Contains(data, field) {
			return true
		}
	}
	return false
}

// Mask parses data as JSON and masks any sensitiveAccountFields values found
// anywhere in the structure. Returns original data on parse/processing
// errors or if nothing needed masking (defensive).
func (m *AccountDataMasker) Mask(data string) string {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return data
	}

	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return data // Not valid JSON — return original
	}

	masked, changed := maskAccountValue(raw)
	if !changed {
		return data
	}

	result, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return data
	}

	output := string(result)
	if strings.HasSuffix(data, "\n") {
		output += "\n"
	}
	return output
}

// maskAccountValue recursively walks v, masking any sensitiveAccountFields
// string values found along the way, and reports whether anything changed.
func maskAccountValue(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		changed := false
		out := make(map[string]any, len(val))
		for k, child := range val {
			if sensitiveAccountFields[k] {
				if s, ok := child.(string); ok && s != "" {
					out[k] = MaskedAccountValue
					changed = true
					continue
				}
			}
			maskedChild, childChanged := maskAccountValue(child)
			out[k] = maskedChild
			changed = changed || childChanged
		}
		return out, changed
	case []any:
		changed := false
		out := make([]any, len(val))
		for i, child := range val {
			maskedChild, childChanged := maskAccountValue(child)
			out[i] = maskedChild
			changed = changed || childChanged
		}
		return out, changed
	default:
		return v, false
	}
}
