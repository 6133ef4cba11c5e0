package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quire/internal/tasks"
)

const defaultLimit = 100

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskRow is one indexed checkbox line.
type TaskRow struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Marker string `json:"marker"`
	Status string `json:"status,omitempty"`
	Text   string `json:"text"`
}

// TaskQuery filters ListTasks. Empty fields match everything.
type TaskQuery struct {
	Status string
	Path   string
	Limit  int
}

// UpsertNote replaces a note row together with its tags and tasks in one transaction.
func (db *DB) UpsertNote(n NoteRow, items []tasks.Task) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM note_tags WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO note_tags (path, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range tags {
			if _, err := stmt.Exec(n.Path, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM tasks WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear tasks: %w", err)
	}
	if len(items) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tasks (path, line, marker, status, text) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare task insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range items {
			if _, err := stmt.Exec(n.Path, t.Line, string(t.Marker), string(t.Status), t.Text); err != nil {
				return fmt.Errorf("index: insert task: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note with its tags and tasks.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM tasks WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM note_tags WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns the indexed row for path, or nil if it is not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`SELECT path, title, checksum, tags, updated_at FROM notes WHERE path = ?`, path)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListTasks returns indexed task lines ordered by path and line.
func (db *DB) ListTasks(q TaskQuery) ([]TaskRow, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	var (
		where []string
		args  []any
	)
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Path != "" {
		where = append(where, "path = ?")
		args = append(args, q.Path)
	}
	query := `SELECT path, line, marker, status, text FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY path, line LIMIT ?`
	args = append(args, q.Limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var t TaskRow
		if err := rows.Scan(&t.Path, &t.Line, &t.Marker, &t.Status, &t.Text); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NotesByTag returns notes carrying tag (case-insensitive), most recently updated first.
func (db *DB) NotesByTag(tag string, limit int) ([]NoteRow, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := db.conn.Query(`
		SELECT n.path, n.title, n.checksum, n.tags, n.updated_at
		FROM notes n
		JOIN note_tags t ON t.path = n.path
		WHERE t.tag = ?
		ORDER BY n.updated_at DESC, n.path
		LIMIT ?
	`, strings.TrimPrefix(tag, "#"), limit)
	if err != nil {
		return nil, fmt.Errorf("index: notes by tag: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*NoteRow, error) {
	var (
		n        NoteRow
		tagsJSON string
	)
	if err := s.Scan(&n.Path, &n.Title, &n.Checksum, &tagsJSON, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		n.Tags = []string{}
	}
	return &n, nil
}
