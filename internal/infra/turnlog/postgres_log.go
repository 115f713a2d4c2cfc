package turnlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
)

// PostgresLog appends turns to an audit table using pgx.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog constructs the log. EnsureSchema must have been called
// before the first Append.
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGSERIAL PRIMARY KEY,
			spoken_at TIMESTAMPTZ NOT NULL,
			author TEXT NOT NULL,
			utterance TEXT NOT NULL
		)
	`)
	return err
}

// Append implements contextmem.Recorder.
func (l *PostgresLog) Append(ctx context.Context, turn contextmem.Turn) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO conversation_turns (spoken_at, author, utterance)
		VALUES ($1, $2, $3)
	`, turn.At, turn.Author, turn.Text)
	return err
}

// Recent returns the latest limit turns, oldest first.
func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]contextmem.Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT spoken_at, author, utterance
		FROM (
			SELECT spoken_at, author, utterance, id
			FROM conversation_turns
			ORDER BY id DESC
			LIMIT $1
		) latest
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextmem.Turn
	for rows.Next() {
		var turn contextmem.Turn
		if err := rows.Scan(&turn.At, &turn.Author, &turn.Text); err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}
