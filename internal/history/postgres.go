package history

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// PostgresRecorder writes the action log and final result rows.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresRecorder{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := r.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// RecordAction inserts one action row; replays of the same index are ignored.
func (r *PostgresRecorder) RecordAction(ctx context.Context, rec ActionRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO uno_actions(session_id, action_index, version, seat, identity, action_type, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`, rec.SessionID, rec.ActionIndex, int64(rec.Version), rec.Seat, rec.Identity, rec.ActionType, rec.Detail, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert action %d for session %s: %w", rec.ActionIndex, rec.SessionID, err)
	}
	return nil
}

// RecordOutcome upserts the result row of a session.
func (r *PostgresRecorder) RecordOutcome(ctx context.Context, res Result) error {
	players, err := json.Marshal(res.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	scores, err := json.Marshal(res.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO uno_results(session_id, reason, winner_seat, winner_name, players, scores, turns, version, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (session_id) DO UPDATE
		  SET reason = EXCLUDED.reason,
		      winner_seat = EXCLUDED.winner_seat,
		      winner_name = EXCLUDED.winner_name,
		      players = EXCLUDED.players,
		      scores = EXCLUDED.scores,
		      turns = EXCLUDED.turns,
		      version = EXCLUDED.version,
		      finished_at = EXCLUDED.finished_at
	`, res.SessionID, res.Reason, res.Winner, res.WinnerName, players, scores, res.Turns, int64(res.Version), res.StartedAt, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("store result for session %s: %w", res.SessionID, err)
	}
	return nil
}

// Close releases the pool.
func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}
