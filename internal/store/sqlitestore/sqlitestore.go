package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"tweetminer/internal/model"
)

var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database holding the run index and the author cache.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases and the CLI's serial use consistent
	d.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS runs (
	  id TEXT PRIMARY KEY,
	  type TEXT NOT NULL,
	  query TEXT NOT NULL,
	  count INTEGER NOT NULL,
	  path TEXT,
	  collected_at REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_collected ON runs(collected_at);
	CREATE TABLE IF NOT EXISTS authors (
	  id TEXT PRIMARY KEY,
	  payload TEXT NOT NULL,
	  fetched_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`)
	return err
}

// Run is one indexed collection run.
type Run struct {
	ID             string
	CollectionType model.CollectionType
	Query          string
	Count          int
	// Path is empty when the result was not saved.
	Path        string
	CollectedAt float64
}

// PutRun inserts or replaces a run.
func (d *DB) PutRun(ctx context.Context, r Run) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO runs(id, type, query, count, path, collected_at) VALUES(?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET type=excluded.type, query=excluded.query, count=excluded.count, path=excluded.path, collected_at=excluded.collected_at`,
		r.ID, string(r.CollectionType), r.Query, r.Count, r.Path, r.CollectedAt)
	return err
}

// GetRun returns ErrNotFound for unknown ids.
func (d *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, type, query, count, COALESCE(path, ''), collected_at FROM runs WHERE id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns returns the newest runs first. limit <= 0 means no limit.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, type, query, count, COALESCE(path, ''), collected_at FROM runs ORDER BY collected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanRun(s scanner) (Run, error) {
	var r Run
	var typ string
	if err := s.Scan(&r.ID, &typ, &r.Query, &r.Count, &r.Path, &r.CollectedAt); err != nil {
		return Run{}, err
	}
	r.CollectionType = model.CollectionType(typ)
	return r, nil
}

// PutAuthor caches a non-empty author lookup.
func (d *DB) PutAuthor(ctx context.Context, info model.AuthorInfo, at time.Time) error {
	if info == nil || info.ID() == "" {
		return errors.New("author info without id")
	}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `INSERT INTO authors(id, payload, fetched_at) VALUES(?,?,?)
	ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`, info.ID(), string(b), at.Unix())
	return err
}

// GetAuthor reports ok=false when id is not cached.
func (d *DB) GetAuthor(ctx context.Context, id string) (model.AuthorInfo, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT payload FROM authors WHERE id=?`, id)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var info model.AuthorInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// PutEvent stores an operational event such as a rate-limit pause.
func (d *DB) PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error {
	pb, _ := json.Marshal(payload)
	_, err := d.sql.ExecContext(ctx, `INSERT INTO events(ts, type, payload) VALUES(?,?,?)`, ts.Unix(), typ, string(pb))
	return err
}

// Event is a stored operational event.
type Event struct {
	TS      time.Time
	Type    string
	Payload string
}

// LoadEventsRange returns events in [start, end), optionally of one type.
func (d *DB) LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]Event, error) {
	var rows *sql.Rows
	var err error
	if typ == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, payload FROM events WHERE ts>=? AND ts<? ORDER BY ts`, start.Unix(), end.Unix())
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, payload FROM events WHERE ts>=? AND ts<? AND type=? ORDER BY ts`, start.Unix(), end.Unix(), typ)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ts int64
		var e Event
		var payload sql.NullString
		if err := rows.Scan(&ts, &e.Type, &payload); err != nil {
			return nil, err
		}
		e.TS = time.Unix(ts, 0).UTC()
		e.Payload = payload.String
		out = append(out, e)
	}
	return out, rows.Err()
}
