// Package storage persists scheduling snapshots and the event journal in
// Postgres.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNoSnapshot = errors.New("no snapshot stored")

// Event is one journal entry. Subject names the entity touched, e.g. an
// appointment key or a medicine name.
type Event struct {
	Type      string
	Subject   string
	Payload   []byte
	CreatedAt time.Time
}

type Snapshot struct {
	ID        int64
	Payload   []byte
	CreatedAt time.Time
}

// dbtx is the part of *pgxpool.Pool the repository needs.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db dbtx
}

func NewPgRepository(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         BIGSERIAL PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS event_logs (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	subject    TEXT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS event_logs_type_created_idx ON event_logs (event_type, created_at);
`

func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, subject, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.Type, ev.Subject, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func (r *PgRepository) SaveSnapshot(ctx context.Context, payload []byte) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO snapshots (payload)
		VALUES ($1)
		RETURNING id
	`, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

func (r *PgRepository) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT id, payload, created_at
		FROM snapshots
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&s.ID, &s.Payload, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load latest snapshot: %w", err)
	}
	return s, nil
}

// PruneSnapshots keeps the newest keep snapshots and returns how many rows
// were removed.
func (r *PgRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	tag, err := r.db.Exec(ctx, `
		DELETE FROM snapshots
		WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT $1)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
