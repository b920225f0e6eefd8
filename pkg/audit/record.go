// Package audit implements the MCP Audit Wrapper (spec.md §4.7, C7): a
// decorator around a tool-server client that derives compliance metadata
// and emits one audit record per call_tool invocation.
package audit

import "time"

// OperationType classifies a tool call for compliance reporting.
type OperationType string

const (
	OperationRead      OperationType = "read"
	OperationValidate  OperationType = "validate"
	OperationExecute   OperationType = "execute"
	OperationOperation OperationType = "operation"
)

// Compliance flags (spec.md §4.7 step 4).
const (
	FlagPCIDSS               = "PCI_DSS"
	FlagGDPRPersonalData     = "GDPR_PERSONAL_DATA"
	FlagHighValueTransaction = "HIGH_VALUE_TRANSACTION"
)

// HighValueThreshold is the amount above which a payment trips
// HIGH_VALUE_TRANSACTION (spec.md §8: 10_000.00 does not trip it, 10_000.01
// does — a strict greater-than comparison).
const HighValueThreshold = 10000.0

// Record is the audit trail entry for one tool invocation (spec.md §3 "Audit
// Record").
type Record struct {
	Timestamp           time.Time      `json:"timestamp"`
	OperationType       OperationType  `json:"operation_type"`
	MCPServer           string         `json:"mcp_server"`
	ToolName            string         `json:"tool_name"`
	UserID              string         `json:"user_id"`
	ThreadID            string         `json:"thread_id"`
	SanitizedParameters map[string]any `json:"sanitized_parameters"`
	DataAccessed        []string       `json:"data_accessed"`
	DataScope           string         `json:"data_scope"`
	ResultStatus        string         `json:"result_status"`
	DurationMS          float64        `json:"duration_ms"`
	ComplianceFlags     []string       `json:"compliance_flags"`
	ErrorMessage        string         `json:"error_message,omitempty"`
}

// Sink persists or forwards a completed audit Record. Implementations must
// not block the caller meaningfully; a failure to sink never fails the
// wrapped tool call (spec.md §4.7: "on failure, re-raise" refers to the tool
// call, not the audit write).
type Sink interface {
	Record(r Record)
}
