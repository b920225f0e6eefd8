package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ToolCaller is the minimal shape of the tool-server client being wrapped
// (matches pkg/mcp.Client.CallTool's signature so *mcp.Client satisfies this
// without modification).
type ToolCaller interface {
	CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (any, error)
}

// Wrapper decorates a ToolCaller with compliance audit logging (spec.md
// §4.7). Grounded on original_source's AuditedMCPTool.call_tool, generalized
// from a Python subclass-override to a Go decorator around teacher
// pkg/mcp.Client's CallTool.
type Wrapper struct {
	next             ToolCaller
	sink             Sink
	userID           string
	threadID         string
	paymentServerIDs map[string]bool
	logger           *slog.Logger
}

// Config configures a Wrapper.
type Config struct {
	UserID   string
	ThreadID string
	// PaymentServerIDs names MCP servers that always carry a PCI_DSS
	// compliance flag (spec.md §4.7 step 4).
	PaymentServerIDs []string
}

// NewWrapper builds a Wrapper around next, emitting records to sink.
func NewWrapper(next ToolCaller, sink Sink, cfg Config) *Wrapper {
	payment := make(map[string]bool, len(cfg.PaymentServerIDs))
	for _, id := range cfg.PaymentServerIDs {
		payment[id] = true
	}
	return &Wrapper{
		next:             next,
		sink:             sink,
		userID:           cfg.UserID,
		threadID:         cfg.ThreadID,
		paymentServerIDs: payment,
		logger:           slog.Default().With("component", "mcp_audit_wrapper"),
	}
}

// CallTool invokes the wrapped tool call, deriving and emitting one audit
// record on completion (success or failure); on failure the original error
// is re-raised unchanged (spec.md §4.7 step 6).
func (w *Wrapper) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (any, error) {
	start := time.Now()

	rec := Record{
		Timestamp:           start.UTC(),
		OperationType:       classifyOperation(toolName),
		MCPServer:           serverID,
		ToolName:            toolName,
		UserID:              orUnknown(w.userID),
		ThreadID:            orUnknown(w.threadID),
		SanitizedParameters: SanitizeParameters(args),
		DataScope:           classifyDataScope(toolName),
		DataAccessed:        dataAccessed(toolName, args),
		ComplianceFlags:     complianceFlags(toolName, args, w.paymentServerIDs[serverID]),
	}

	result, err := w.next.CallTool(ctx, serverID, toolName, args)
	rec.DurationMS = float64(time.Since(start).Microseconds()) / 1000.0

	switch {
	case ctx.Err() != nil:
		rec.ResultStatus = "cancelled"
		if err != nil {
			rec.ErrorMessage = err.Error()
		}
	case err != nil:
		rec.ResultStatus = "error"
		rec.ErrorMessage = err.Error()
	default:
		rec.ResultStatus = "success"
	}

	w.emit(rec)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Wrapper) emit(rec Record) {
	if w.sink != nil {
		w.sink.Record(rec)
	}
	w.logger.Info("mcp tool call audited",
		"tool", rec.ToolName,
		"server", rec.MCPServer,
		"status", rec.ResultStatus,
		"duration_ms", rec.DurationMS,
		"compliance_flags", rec.ComplianceFlags,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// dataAccessed summarizes which entities were touched by a call (spec.md
// §4.7, grounded on original_source's _extract_data_accessed).
func dataAccessed(toolName string, args map[string]any) []string {
	accessed := []string{"tool:" + toolName}
	for _, key := range []string{"customer_id", "account_id", "sender_account_id", "recipient_account_id", "amount"} {
		if v, ok := args[key]; ok {
			accessed = append(accessed, key+":"+toString(v))
		}
	}
	return accessed
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
