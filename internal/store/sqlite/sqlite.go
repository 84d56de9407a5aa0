package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mentiongraph/internal/model"
)

var (
	ErrNoCursor   = errors.New("cursor not found")
	ErrNoSnapshot = errors.New("no ranking snapshot")
)

// DB wraps a SQLite database holding messages, ingest cursors and ranking snapshots.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	if path == ":memory:" {
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
	  id INTEGER PRIMARY KEY,
	  author TEXT NOT NULL,
	  text TEXT NOT NULL,
	  ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS snapshots (
	  seq INTEGER PRIMARY KEY AUTOINCREMENT,
	  run_id TEXT NOT NULL UNIQUE,
	  taken_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at);
	CREATE TABLE IF NOT EXISTS rankings (
	  run_id TEXT NOT NULL REFERENCES snapshots(run_id),
	  position INTEGER NOT NULL,
	  username TEXT NOT NULL,
	  followers INTEGER NOT NULL,
	  PRIMARY KEY (run_id, position)
	);
	`)
	return err
}

// PutMessages stores messages, ignoring IDs already present. It returns the
// number of newly inserted rows.
func (d *DB) PutMessages(ctx context.Context, msgs []model.Message) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO messages(id, author, text, ts) VALUES(?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	inserted := 0
	for _, m := range msgs {
		res, err := stmt.ExecContext(ctx, m.ID, m.Author, m.Text, m.Timestamp.Unix())
		if err != nil {
			return 0, fmt.Errorf("insert message %d: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// LoadMessages returns messages with timestamps in [start,end), oldest first.
// A zero end means no upper bound.
func (d *DB) LoadMessages(ctx context.Context, start, end time.Time) ([]model.Message, error) {
	upper := end.Unix()
	if end.IsZero() {
		upper = 1<<63 - 1
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, author, text, ts FROM messages WHERE ts>=? AND ts<? ORDER BY ts, id`, start.Unix(), upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		var ts int64
		if err := rows.Scan(&m.ID, &m.Author, &m.Text, &ts); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllMessages returns every stored message, oldest first.
func (d *DB) AllMessages(ctx context.Context) ([]model.Message, error) {
	return d.LoadMessages(ctx, time.Time{}, time.Time{})
}

func (d *DB) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// SaveCursor upserts an ingest cursor.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoCursor
	}
	return v, err
}

// Snapshot is a persisted influence ranking.
type Snapshot struct {
	RunID   uuid.UUID
	TakenAt time.Time
	Entries []model.Influencer
}

// SaveSnapshot stores a ranking under a fresh run ID and returns it. An empty
// ranking is stored too and becomes the latest snapshot.
func (d *DB) SaveSnapshot(ctx context.Context, takenAt time.Time, entries []model.Influencer) (Snapshot, error) {
	snap := Snapshot{RunID: uuid.New(), TakenAt: takenAt.UTC().Truncate(time.Second), Entries: entries}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return snap, err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(run_id, taken_at) VALUES(?,?)`, snap.RunID.String(), snap.TakenAt.Unix()); err != nil {
		return snap, err
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rankings(run_id, position, username, followers) VALUES(?,?,?,?)`,
			snap.RunID.String(), i, e.Username, e.Followers); err != nil {
			return snap, err
		}
	}
	return snap, tx.Commit()
}

// LatestSnapshot returns the most recently taken ranking, possibly with no entries.
func (d *DB) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var runID string
	var takenAt int64
	err := d.sql.QueryRowContext(ctx, `SELECT run_id, taken_at FROM snapshots ORDER BY taken_at DESC, seq DESC LIMIT 1`).Scan(&runID, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, err
	}
	if snap.RunID, err = uuid.Parse(runID); err != nil {
		return snap, fmt.Errorf("bad run id %q: %w", runID, err)
	}
	snap.TakenAt = time.Unix(takenAt, 0).UTC()
	snap.Entries = []model.Influencer{}
	rows, err := d.sql.QueryContext(ctx, `SELECT username, followers FROM rankings WHERE run_id=? ORDER BY position`, runID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Influencer
		if err := rows.Scan(&e.Username, &e.Followers); err != nil {
			return snap, err
		}
		snap.Entries = append(snap.Entries, e)
	}
	return snap, rows.Err()
}
