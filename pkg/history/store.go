// Package history persists processing results in a SQLite database, one row
// per named result, with a one-shot import of legacy JSON history files.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05"

// Entry is one history listing row.
type Entry struct {
	Name      string                 `json:"name"`
	Timestamp string                 `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta"`
}

// Record is a fully loaded history item.
type Record struct {
	Meta map[string]interface{} `json:"meta"`
	Data map[string]interface{} `json:"data"`
}

// Store is a SQLite-backed history of processing results.
type Store struct {
	db  *sql.DB
	dir string
}

// Open creates the history directory if needed, opens the database, ensures
// the schema and imports any legacy *.json history files that are not in the
// database yet.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			name TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			meta TEXT NOT NULL,
			data TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.importLegacyJSON(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// importLegacyJSON imports pre-database JSON history files once, so
// previously saved results stay visible. Files that already have a database
// row, or that cannot be parsed, are skipped.
func (s *Store) importLegacyJSON() error {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("history: scan legacy files: %w", err)
	}
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".json")

		var exists int
		err := s.db.QueryRow("SELECT 1 FROM history WHERE name = ?", name).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("history: check %q: %w", name, err)
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Meta == nil {
			rec.Meta = map[string]interface{}{}
		}
		if _, ok := rec.Meta["name"]; !ok {
			rec.Meta["name"] = name
		}
		ts, _ := rec.Meta["timestamp"].(string)
		if ts == "" {
			ts = time.Now().Format(timestampLayout)
			rec.Meta["timestamp"] = ts
		}
		if err := s.insert(name, ts, rec.Meta, rec.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insert(name, ts string, meta, data map[string]interface{}) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("history: marshal meta for %q: %w", name, err)
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("history: marshal data for %q: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO history (name, timestamp, meta, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			timestamp = excluded.timestamp,
			meta = excluded.meta,
			data = excluded.data
	`, name, ts, string(metaJSON), string(dataJSON))
	if err != nil {
		return fmt.Errorf("history: save %q: %w", name, err)
	}
	return nil
}

// Save upserts a named result and returns the listing entry written.
func (s *Store) Save(name string, data, meta map[string]interface{}) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("history: empty result name")
	}
	m := make(map[string]interface{}, len(meta)+2)
	for k, v := range meta {
		m[k] = v
	}
	if _, ok := m["name"]; !ok {
		m["name"] = name
	}
	ts, _ := m["timestamp"].(string)
	if ts == "" {
		ts = time.Now().Format(timestampLayout)
		m["timestamp"] = ts
	}
	if err := s.insert(name, ts, m, data); err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Timestamp: ts, Meta: m}, nil
}

// List returns all history entries, newest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT name, timestamp, meta FROM history ORDER BY timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metaJSON string
		if err := rows.Scan(&e.Name, &e.Timestamp, &metaJSON); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
			return nil, fmt.Errorf("history: decode meta for %q: %w", e.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Load returns the full record for a name.
func (s *Store) Load(name string) (Record, error) {
	var metaJSON, dataJSON string
	err := s.db.QueryRow("SELECT meta, data FROM history WHERE name = ?", name).
		Scan(&metaJSON, &dataJSON)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("history: no entry %q", name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: load %q: %w", name, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(metaJSON), &rec.Meta); err != nil {
		return Record{}, fmt.Errorf("history: decode meta for %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
		return Record{}, fmt.Errorf("history: decode data for %q: %w", name, err)
	}
	return rec, nil
}

// Rename moves an entry to a new name and refreshes its timestamp. A legacy
// JSON file with the old name is renamed alongside when present.
func (s *Store) Rename(oldName, newName string) (Entry, error) {
	rec, err := s.Load(oldName)
	if err != nil {
		return Entry{}, err
	}

	ts := time.Now().Format(timestampLayout)
	rec.Meta["name"] = newName
	rec.Meta["timestamp"] = ts

	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return Entry{}, fmt.Errorf("history: marshal meta for %q: %w", newName, err)
	}
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return Entry{}, fmt.Errorf("history: marshal data for %q: %w", newName, err)
	}
	_, err = s.db.Exec(`
		UPDATE history SET name = ?, timestamp = ?, meta = ?, data = ? WHERE name = ?
	`, newName, ts, string(metaJSON), string(dataJSON), oldName)
	if err != nil {
		return Entry{}, fmt.Errorf("history: rename %q to %q: %w", oldName, newName, err)
	}

	legacyOld := filepath.Join(s.dir, oldName+".json")
	if _, statErr := os.Stat(legacyOld); statErr == nil {
		_ = os.Rename(legacyOld, filepath.Join(s.dir, newName+".json"))
	}

	return Entry{Name: newName, Timestamp: ts, Meta: rec.Meta}, nil
}
