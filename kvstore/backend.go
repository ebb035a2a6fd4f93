// Package kvstore implements the backend KV interface from spec.md §6:
// namespaced ordered key/value persistence consumed by the catalog and
// row store. Two implementations are provided: Memory (stdlib-only,
// process-local) and SQLite (on-disk, via mattn/go-sqlite3).
package kvstore

import "context"

// Entry is a single (key, value) pair returned by Scan, in namespace scan
// order.
type Entry struct {
	Key   string
	Value []byte
}

// Backend is the storage engine interface the catalog is built on (spec
// §6). All operations are fallible with a single system-error kind; the
// catalog never inspects the underlying cause beyond wrapping it.
type Backend interface {
	CreateNamespace(ctx context.Context, name string) error
	DropNamespace(ctx context.Context, name string) error
	Put(ctx context.Context, namespace, key string, value []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Delete(ctx context.Context, namespace, key string) error
	// Scan returns every entry in namespace. Memory returns key order;
	// SQLite returns first-insertion order. The catalog's zero-padded,
	// increasing row keys make the two orders coincide for row data.
	Scan(ctx context.Context, namespace string) ([]Entry, error)
}
