package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// Handler processes a decoded A2A Message and produces a Response. Specialist
// agents implement this; pkg/agent wires it to Echo.
type Handler func(ctx context.Context, msg Message) Response

// ServeHTTP adapts a Handler to a plain net/http endpoint, following the
// wire contract of spec.md §6: HTTP 200 for any well-formed envelope
// (success or error status inside the body), 5xx only for protocol-level
// failure.
func ServeHTTP(handler Handler, logger *slog.Logger) http.HandlerFunc {
	codec := NewCodec()
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		msg, err := codec.Decode(body)
		if err != nil {
			logger.Warn("a2a: rejecting malformed envelope", "error", err)
			status := http.StatusBadRequest
			if errors.Is(err, ErrVersionMismatch) {
				status = http.StatusUnprocessableEntity
			}
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		resp := handler(r.Context(), msg)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
