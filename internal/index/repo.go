package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// RecordRow holds the record columns of a file that is a record.
type RecordRow struct {
	Title  string
	Status string
	Tags   []string
	Body   string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertFile inserts or replaces a file, its record row (nil when the file
// is not a record) and its outgoing references within a transaction.
func (db *DB) UpsertFile(f FileRow, rec *RecordRow, refs []models.Ref) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, f.Path, f.Checksum, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	if rec != nil {
		tagsJSON, _ := json.Marshal(rec.Tags)
		_, err = tx.Exec(`
			INSERT INTO records (path, title, status, tags, body)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				title  = excluded.title,
				status = excluded.status,
				tags   = excluded.tags,
				body   = excluded.body
		`, f.Path, rec.Title, rec.Status, string(tagsJSON), rec.Body)
		if err != nil {
			return fmt.Errorf("index: upsert record: %w", err)
		}
		if err := ftsUpsert(tx, f.Path, rec.Title, rec.Body, rec.Tags); err != nil {
			return err
		}
	} else {
		_, _ = tx.Exec(`DELETE FROM records WHERE path = ?`, f.Path)
		ftsDelete(tx, f.Path)
	}

	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, f.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source, target_text, line, col_start, col_end) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(f.Path, r.TargetText, r.Line, r.ColumnStart, r.ColumnEnd); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file with its record row and outgoing references.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM records WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM files WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
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

// ListRecords returns every indexed record ordered by path.
func (db *DB) ListRecords() ([]models.RecordSummary, error) {
	rows, err := db.conn.Query(`
		SELECT r.path, r.title, r.status, f.updated_at
		FROM records r JOIN files f ON f.path = r.path
		ORDER BY r.path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list records: %w", err)
	}
	defer rows.Close()

	var out []models.RecordSummary
	for rows.Next() {
		var r models.RecordSummary
		if err := rows.Scan(&r.Path, &r.Title, &r.Status, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRecord returns one indexed record.
func (db *DB) GetRecord(path string) (models.RecordSummary, error) {
	var r models.RecordSummary
	err := db.conn.QueryRow(`
		SELECT r.path, r.title, r.status, f.updated_at
		FROM records r JOIN files f ON f.path = r.path
		WHERE r.path = ?
	`, path).Scan(&r.Path, &r.Title, &r.Status, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("index: record %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("index: get record: %w", err)
	}
	return r, nil
}

// RefsFrom returns the references found in source, in document order.
func (db *DB) RefsFrom(source string) ([]models.Ref, error) {
	return db.queryRefs(`
		SELECT source, target_text, line, col_start, col_end
		FROM refs WHERE source = ?
		ORDER BY line, col_start
	`, source)
}

// Backlinks returns the references, from other files, whose text is
// contained in recordPath: the same substring rule the resolver applies.
func (db *DB) Backlinks(recordPath string) ([]models.Ref, error) {
	return db.queryRefs(`
		SELECT source, target_text, line, col_start, col_end
		FROM refs
		WHERE instr(?1, target_text) > 0 AND source != ?1
		ORDER BY source, line, col_start
	`, recordPath)
}

func (db *DB) queryRefs(query string, args ...any) ([]models.Ref, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: refs: %w", err)
	}
	defer rows.Close()

	var out []models.Ref
	for rows.Next() {
		var r models.Ref
		if err := rows.Scan(&r.Source, &r.TargetText, &r.Line, &r.ColumnStart, &r.ColumnEnd); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Meta returns a stored metadata value, or empty string if not set.
func (db *DB) Meta(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: meta: %w", err)
	}
	return v, nil
}

// SetMeta stores a metadata value.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set meta: %w", err)
	}
	return nil
}
