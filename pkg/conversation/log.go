package conversation

import (
	"context"
	"database/sql"
	"time"
)

// TurnLogger persists one turn's messages durably, off the request's
// critical path where possible (spec.md §4.11 "written to a durable
// append-only record per turn (off-thread is acceptable)").
type TurnLogger interface {
	LogTurn(ctx context.Context, sessionID, customerID string, messages []Message) error
}

// PostgresTurnLogger appends turns to the conversations/conversation_messages
// tables (pkg/database/migrations/000001_init.up.sql), grounded on teacher
// pkg/database's plain database/sql-over-pgx usage (no ORM).
type PostgresTurnLogger struct {
	db *sql.DB
}

// NewPostgresTurnLogger builds a PostgresTurnLogger over db.
func NewPostgresTurnLogger(db *sql.DB) *PostgresTurnLogger {
	return &PostgresTurnLogger{db: db}
}

// LogTurn upserts the conversation row and appends messages. Idempotent per
// call: re-appending the same turn after a retry produces duplicate rows,
// which is acceptable for an append-only audit log (spec.md does not
// require turn-level dedup).
func (l *PostgresTurnLogger) LogTurn(ctx context.Context, sessionID, customerID string, messages []Message) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (session_id, customer_id, active_agent, active_agent_endpoint, created_at)
		VALUES ($1, $2, '', '', $3)
		ON CONFLICT (session_id) DO NOTHING
	`, sessionID, customerID, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, m := range messages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_messages (session_id, role, content, created_at)
			VALUES ($1, $2, $3, $4)
		`, sessionID, m.Role, m.Content, m.CreatedAt.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// NoopTurnLogger discards turns; used when durable logging is not
// configured (e.g. in tests).
type NoopTurnLogger struct{}

// LogTurn implements TurnLogger as a no-op.
func (NoopTurnLogger) LogTurn(context.Context, string, string, []Message) error { return nil }
