package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
	_ "modernc.org/sqlite"
)

// ErrAbortingWipe is returned by SyncSnapshot when an empty directory would
// mark every recorded mosque as removed.
var ErrAbortingWipe = errors.New("refusing to record an empty directory over an existing snapshot")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS mosque_snapshots (
  mosque_id       TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  status          TEXT NOT NULL CHECK (status IN ('approved','no_admin')),
  approved_admin  TEXT,
  pending_count   INTEGER NOT NULL DEFAULT 0,
  rejected_count  INTEGER NOT NULL DEFAULT 0,
  run_id          INTEGER NOT NULL DEFAULT 0,
  first_seen_at   TEXT NOT NULL,
  last_seen_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_status ON mosque_snapshots(status);
CREATE TABLE IF NOT EXISTS snapshot_changes (
  id           INTEGER PRIMARY KEY,
  occurred_at  TEXT NOT NULL,
  mosque_id    TEXT NOT NULL,
  name         TEXT NOT NULL,
  change_type  TEXT NOT NULL CHECK (change_type IN ('added','removed','approved','unassigned','pending_changed')),
  detail       TEXT
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON snapshot_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_mosque ON snapshot_changes(mosque_id, occurred_at);
CREATE TABLE IF NOT EXISTS sessions (
  id          INTEGER PRIMARY KEY CHECK (id = 1),
  token       TEXT NOT NULL,
  user_id     TEXT,
  name        TEXT,
  email       TEXT,
  role        TEXT,
  mosque_id   TEXT,
  issued_at   TEXT NOT NULL,
  expires_at  TEXT NOT NULL
);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SyncOptions controls SyncSnapshot.
type SyncOptions struct {
	// AllowEmpty records an empty directory even when a snapshot exists.
	AllowEmpty bool
}

// SyncSnapshot records the reconciled directory and returns what changed
// since the previous sync. Mosques not present in views are removed.
func (d *DB) SyncSnapshot(ctx context.Context, views []directory.MosqueView, opts SyncOptions) (changes []Change, err error) {
	now := time.Now().UTC()
	nowStr := formatTime(now)
	runID := now.UnixNano()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT mosque_id, name, status, approved_admin, pending_count, rejected_count FROM mosque_snapshots")
	if err != nil {
		return nil, err
	}
	existing := make(map[string]Entry)
	for rows.Next() {
		var (
			e     Entry
			admin sql.NullString
		)
		if err = rows.Scan(&e.MosqueID, &e.Name, &e.Status, &admin, &e.PendingCount, &e.RejectedCount); err != nil {
			rows.Close()
			return nil, err
		}
		e.ApprovedAdmin = admin.String
		existing[e.MosqueID] = e
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	if len(views) == 0 && len(existing) > 0 && !opts.AllowEmpty {
		err = ErrAbortingWipe
		return nil, err
	}

	for _, v := range views {
		cur := EntryFromView(v)
		old, existed := existing[cur.MosqueID]

		if !existed {
			_, err = tx.ExecContext(ctx, `INSERT INTO mosque_snapshots(mosque_id, name, status, approved_admin, pending_count, rejected_count, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`,
				cur.MosqueID, cur.Name, string(cur.Status), nullIfEmpty(cur.ApprovedAdmin), cur.PendingCount, cur.RejectedCount, runID, nowStr, nowStr)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, MosqueID: cur.MosqueID, Name: cur.Name, ChangeType: ChangeAdded, Detail: string(cur.Status)})
			existing[cur.MosqueID] = cur
			continue
		}

		changes = append(changes, diffEntry(old, cur, now)...)
		_, err = tx.ExecContext(ctx, `UPDATE mosque_snapshots SET name = ?, status = ?, approved_admin = ?, pending_count = ?, rejected_count = ?, run_id = ?, last_seen_at = ? WHERE mosque_id = ?`,
			cur.Name, string(cur.Status), nullIfEmpty(cur.ApprovedAdmin), cur.PendingCount, cur.RejectedCount, runID, nowStr, cur.MosqueID)
		if err != nil {
			return nil, err
		}
	}

	// Sweep: anything not touched in this run is gone from the directory.
	staleRows, err := tx.QueryContext(ctx, "SELECT mosque_id, name FROM mosque_snapshots WHERE run_id != ?", runID)
	if err != nil {
		return nil, err
	}
	var removed []Change
	for staleRows.Next() {
		c := Change{OccurredAt: now, ChangeType: ChangeRemoved}
		if err = staleRows.Scan(&c.MosqueID, &c.Name); err != nil {
			staleRows.Close()
			return nil, err
		}
		removed = append(removed, c)
	}
	if err = staleRows.Close(); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM mosque_snapshots WHERE run_id != ?`, runID); err != nil {
			return nil, err
		}
		changes = append(changes, removed...)
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO snapshot_changes(occurred_at, mosque_id, name, change_type, detail) VALUES(?,?,?,?,?)`,
			nowStr, c.MosqueID, c.Name, c.ChangeType, nullIfEmpty(c.Detail))
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListOptions controls selection when listing entries.
type ListOptions struct {
	Status     string
	NameFilter string
}

// ListEntries returns the recorded snapshot, ordered by name.
func (d *DB) ListEntries(ctx context.Context, opts ListOptions) ([]Entry, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Status != "" && opts.Status != "all" {
		where += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.NameFilter != "" {
		where += " AND name LIKE ?"
		args = append(args, fmt.Sprintf("%%%s%%", opts.NameFilter))
	}

	q := "SELECT mosque_id, name, status, approved_admin, pending_count, rejected_count, last_seen_at FROM mosque_snapshots " + where + " ORDER BY name, mosque_id"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			admin    sql.NullString
			lastSeen string
		)
		if err := rows.Scan(&e.MosqueID, &e.Name, &e.Status, &admin, &e.PendingCount, &e.RejectedCount, &lastSeen); err != nil {
			return nil, err
		}
		e.ApprovedAdmin = admin.String
		e.LastSeenAt = parseTime(lastSeen)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentChanges returns the most recent N changes, newest first.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, mosque_id, name, change_type, detail FROM snapshot_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c          Change
			occurredAt string
			detail     sql.NullString
		)
		if err := rows.Scan(&occurredAt, &c.MosqueID, &c.Name, &c.ChangeType, &detail); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTime(occurredAt)
		c.Detail = detail.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

type StatusStats struct {
	Status        string
	MosqueCount   int
	PendingCount  int
	RejectedCount int
}

// GetStats summarises the recorded snapshot per mosque status.
func (d *DB) GetStats(ctx context.Context) ([]StatusStats, error) {
	query := `
		SELECT
			status,
			COUNT(*),
			COALESCE(SUM(pending_count), 0),
			COALESCE(SUM(rejected_count), 0)
		FROM
			mosque_snapshots
		GROUP BY
			status
		ORDER BY
			status;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []StatusStats
	for rows.Next() {
		var s StatusStats
		if err := rows.Scan(&s.Status, &s.MosqueCount, &s.PendingCount, &s.RejectedCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
