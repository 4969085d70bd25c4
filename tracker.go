package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Tracker records follow-up counts per (recipient, subject) pair in a local
// SQLite database so repeat runs increment a counter instead of inserting
// duplicate rows.
type Tracker struct {
	db *sql.DB
}

// FollowUp is one row of the tracking table.
type FollowUp struct {
	ID             int64
	Email          string
	Subject        string
	Status         string
	FollowUpCount  int
	LastFollowUpAt time.Time
	CreatedAt      time.Time
}

// OpenTracker opens (or creates) the database at the given path and ensures
// the schema exists.
func OpenTracker(dbPath string) (*Tracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", dbPath, err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Tracker{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS followups (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	email             TEXT NOT NULL,
	subject           TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT '',
	follow_up_count   INTEGER NOT NULL DEFAULT 1,
	last_follow_up_at TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	UNIQUE(email, subject)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// Record upserts the (email, subject) pair: a new pair starts at count 1, an
// existing one gets its counter incremented and its timestamp refreshed.
func (t *Tracker) Record(email, subject string, status SendStatus, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	_, err := t.db.Exec(`
		INSERT INTO followups (email, subject, status, follow_up_count, last_follow_up_at, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(email, subject) DO UPDATE SET
			status            = excluded.status,
			follow_up_count   = follow_up_count + 1,
			last_follow_up_at = excluded.last_follow_up_at
	`, email, subject, string(status), ts, ts)
	if err != nil {
		return fmt.Errorf("recording follow-up for %s: %w", email, err)
	}
	return nil
}

// FollowUpCount returns the counter for a pair, or 0 when the pair is
// unknown.
func (t *Tracker) FollowUpCount(email, subject string) (int, error) {
	var count int
	err := t.db.QueryRow(
		"SELECT follow_up_count FROM followups WHERE email = ? AND subject = ?",
		email, subject,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List returns all tracking rows ordered by recipient then subject.
func (t *Tracker) List() ([]FollowUp, error) {
	rows, err := t.db.Query(`
		SELECT id, email, subject, status, follow_up_count, last_follow_up_at, created_at
		FROM followups ORDER BY email, subject
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followups []FollowUp
	for rows.Next() {
		var f FollowUp
		var last, created string
		if err := rows.Scan(&f.ID, &f.Email, &f.Subject, &f.Status, &f.FollowUpCount, &last, &created); err != nil {
			return nil, err
		}
		if f.LastFollowUpAt, err = time.Parse(time.RFC3339, last); err != nil {
			return nil, fmt.Errorf("parsing last_follow_up_at %q: %w", last, err)
		}
		if f.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		followups = append(followups, f)
	}
	return followups, rows.Err()
}

// Prune deletes rows whose last follow-up is older than the cutoff and
// returns the number of rows removed.
func (t *Tracker) Prune(before time.Time) (int64, error) {
	res, err := t.db.Exec(
		"DELETE FROM followups WHERE last_follow_up_at < ?",
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
