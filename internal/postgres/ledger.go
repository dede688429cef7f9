package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/toy-session-engine/internal/events"
)

type LedgerRepo struct{ DB *pgxpool.Pool }

// Record stores one envelope. Replays of the same event_id are ignored, so it
// reports whether a row was actually written.
func (r *LedgerRepo) Record(ctx context.Context, env events.Envelope) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO session_ledger(event_id, event_type, correlation_id, producer, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`, env.EventID, env.EventType, env.CorrelationID, env.Producer, env.OccurredAt, []byte(env.Payload))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
