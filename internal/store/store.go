// Package store persists the signal-history stream and periodic structural
// snapshots to Postgres. Grounded on the donor's sqlx-based repositories
// (github.com/jmoiron/sqlx over github.com/lib/pq).
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/signal"
)

// SignalRecord is one row of the append-only signal-history stream (§6
// Export).
type SignalRecord struct {
	SignalID            string    `db:"signal_id"`
	Series              string    `db:"series"`
	BarTime             time.Time `db:"bar_time"`
	Types               string    `db:"types"` // comma-joined Type.String() labels
	IsBuy               bool      `db:"is_buy"`
	RelatedType1BarTime *time.Time `db:"related_type1_bar_time"`
	StrokeBeginTime     time.Time `db:"stroke_begin_time"`
	StrokeEndTime       time.Time `db:"stroke_end_time"`
}

// Store wraps a Postgres connection for signal-history and snapshot
// persistence.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, czerr.Wrap(czerr.ParamError, "connecting to postgres", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS signal_history (
	signal_id TEXT PRIMARY KEY,
	series TEXT NOT NULL,
	bar_time TIMESTAMPTZ NOT NULL,
	types TEXT NOT NULL,
	is_buy BOOLEAN NOT NULL,
	related_type1_bar_time TIMESTAMPTZ,
	stroke_begin_time TIMESTAMPTZ NOT NULL,
	stroke_end_time TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS signal_history_series_idx ON signal_history (series, bar_time);

CREATE TABLE IF NOT EXISTS structural_snapshot (
	series TEXT NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	bar_count INT NOT NULL,
	merged_count INT NOT NULL,
	stroke_count INT NOT NULL,
	segment_count INT NOT NULL,
	zone_count INT NOT NULL,
	signal_count INT NOT NULL,
	PRIMARY KEY (series, taken_at)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return czerr.Wrap(czerr.ParamError, "running schema migration", err)
	}
	return nil
}

// InsertSignal appends one signal-history row, ignoring a duplicate
// signal_id (the stream is append-only and idempotent under replay).
func (s *Store) InsertSignal(ctx context.Context, rec SignalRecord) error {
	const q = `
INSERT INTO signal_history
	(signal_id, series, bar_time, types, is_buy, related_type1_bar_time, stroke_begin_time, stroke_end_time)
VALUES
	(:signal_id, :series, :bar_time, :types, :is_buy, :related_type1_bar_time, :stroke_begin_time, :stroke_end_time)
ON CONFLICT (signal_id) DO NOTHING`
	if _, err := s.db.NamedExecContext(ctx, q, rec); err != nil {
		return czerr.Wrap(czerr.ParamError, "inserting signal record", err)
	}
	return nil
}

// InsertSnapshot persists one structural snapshot row.
func (s *Store) InsertSnapshot(ctx context.Context, series string, takenAt time.Time, barCount, mergedCount, strokeCount, segmentCount, zoneCount, signalCount int) error {
	const q = `
INSERT INTO structural_snapshot
	(series, taken_at, bar_count, merged_count, stroke_count, segment_count, zone_count, signal_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.db.ExecContext(ctx, q, series, takenAt, barCount, mergedCount, strokeCount, segmentCount, zoneCount, signalCount); err != nil {
		return czerr.Wrap(czerr.ParamError, "inserting snapshot record", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// TypeLabels joins a Signal's Types into the stream's comma-separated form.
func TypeLabels(sig *signal.Signal) string {
	out := ""
	for i, t := range sig.Types() {
		if i > 0 {
			out += ","
		}
		out += t.String()
	}
	return out
}
