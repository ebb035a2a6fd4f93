package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is an on-disk Backend implementation. Each namespace is a
// SQLite table `(seq INTEGER PRIMARY KEY AUTOINCREMENT, k TEXT UNIQUE, v
// BLOB)`; Scan orders by seq, which is monotonically increasing and
// therefore preserves insertion order exactly as spec.md §4.3's advisory
// KV mapping requires.
//
// Grounded on ha1tch-aulsql's use of mattn/go-sqlite3 as a storage engine
// driver (storage/sqlite.go in that repo).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the SQLite database file at
// path and returns a ready-to-use backend.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("kvstore: connecting to sqlite database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var validNamespace = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tableName maps a namespace to a safe SQLite table identifier. Namespace
// values originate from schema/table names (spec §3: non-empty,
// case-preserved) or the catalog's own reserved namespaces, never from
// unsanitized client input. Every character outside [A-Za-z0-9_] is
// replaced with '_' and the result is prefixed with "ns_", so the DDL
// strings built from it only ever contain a simple identifier; distinct
// namespaces that differ only in such characters map to the same table.
func tableName(namespace string) (string, error) {
	mangled := "ns_" + regexp.MustCompile(`[^A-Za-z0-9_]`).ReplaceAllString(namespace, "_")
	if !validNamespace.MatchString(mangled) {
		return "", fmt.Errorf("kvstore: invalid namespace %q", namespace)
	}
	return mangled, nil
}

func (s *SQLite) CreateNamespace(ctx context.Context, name string) error {
	tbl, err := tableName(name)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE %s (seq INTEGER PRIMARY KEY AUTOINCREMENT, k TEXT UNIQUE NOT NULL, v BLOB)`, tbl))
	if err != nil {
		return fmt.Errorf("kvstore: creating namespace %q: %w", name, err)
	}
	return nil
}

func (s *SQLite) DropNamespace(ctx context.Context, name string) error {
	tbl, err := tableName(name)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tbl))
	if err != nil {
		return fmt.Errorf("kvstore: dropping namespace %q: %w", name, err)
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, namespace, key string, value []byte) error {
	tbl, err := tableName(namespace)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, tbl), key, value)
	if err != nil {
		return fmt.Errorf("kvstore: put into namespace %q: %w", namespace, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	tbl, err := tableName(namespace)
	if err != nil {
		return nil, false, err
	}

	var v []byte
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, tbl), key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: get from namespace %q: %w", namespace, err)
	}
	return v, true, nil
}

func (s *SQLite) Delete(ctx context.Context, namespace, key string) error {
	tbl, err := tableName(namespace)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, tbl), key)
	if err != nil {
		return fmt.Errorf("kvstore: delete from namespace %q: %w", namespace, err)
	}
	return nil
}

func (s *SQLite) Scan(ctx context.Context, namespace string) ([]Entry, error) {
	tbl, err := tableName(namespace)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT k, v FROM %s ORDER BY seq ASC`, tbl))
	if err != nil {
		return nil, fmt.Errorf("kvstore: scanning namespace %q: %w", namespace, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("kvstore: scanning namespace %q: %w", namespace, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: scanning namespace %q: %w", namespace, err)
	}
	return entries, nil
}
