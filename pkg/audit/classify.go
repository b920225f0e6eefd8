package audit

import (
	"strconv"
	"strings"
)

// classifyOperation derives OperationType from a tool name (spec.md §4.7
// step 2).
func classifyOperation(toolName string) OperationType {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "get"), strings.Contains(lower, "read"), strings.Contains(lower, "list"):
		return OperationRead
	case strings.Contains(lower, "check"), strings.Contains(lower, "validate"):
		return OperationValidate
	case strings.Contains(lower, "execute"), strings.Contains(lower, "transfer"):
		return OperationExecute
	default:
		return OperationOperation
	}
}

// classifyDataScope derives the data scope from a tool name (spec.md §4.7
// step 3).
func classifyDataScope(toolName string) string {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "account"):
		return "account_data"
	case strings.Contains(lower, "beneficiary"):
		return "contact_data"
	case strings.Contains(lower, "transfer"), strings.Contains(lower, "execute"):
		return "payment_data"
	default:
		return "general"
	}
}

// complianceFlags derives compliance flags for a call (spec.md §4.7 step 4).
// isPaymentServer marks servers that always carry PCI_DSS obligations.
func complianceFlags(toolName string, args map[string]any, isPaymentServer bool) []string {
	var flags []string
	if isPaymentServer {
		flags = append(flags, FlagPCIDSS)
	}

	lower := strings.ToLower(toolName)
	if strings.Contains(lower, "account") || strings.Contains(lower, "beneficiary") {
		flags = append(flags, FlagGDPRPersonalData)
	}

	if amount, ok := amountArg(args); ok && amount > HighValueThreshold {
		flags = append(flags, FlagHighValueTransaction)
	}

	return flags
}

// amountArg extracts a numeric "amount" argument regardless of whether it
// arrived as a float64 (typical json.Unmarshal into any) or a string.
func amountArg(args map[string]any) (float64, bool) {
	raw, ok := args["amount"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
