package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a process-local Backend implementation backed by a Go map per
// namespace. It is the default backend used by catalog tests and by
// cmd/minipgd when no on-disk store is configured.
//
// Grounded on the teacher's own DefaultStatementCache/DefaultPortalCache
// pattern (map guarded by a sync.RWMutex); see DESIGN.md for why no pack
// library fits an in-process ordered KV store better than the stdlib map.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
}

// NewMemory constructs an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string][]byte)}
}

func (m *Memory) CreateNamespace(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[name]; ok {
		return fmt.Errorf("kvstore: namespace %q already exists", name)
	}
	m.namespaces[name] = make(map[string][]byte)
	return nil
}

func (m *Memory) DropNamespace(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[name]; !ok {
		return fmt.Errorf("kvstore: namespace %q does not exist", name)
	}
	delete(m.namespaces, name)
	return nil
}

func (m *Memory) Put(ctx context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return fmt.Errorf("kvstore: namespace %q does not exist", namespace)
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	ns[key] = cp
	return nil
}

func (m *Memory) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return nil, false, fmt.Errorf("kvstore: namespace %q does not exist", namespace)
	}

	v, ok := ns[key]
	return v, ok, nil
}

func (m *Memory) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return fmt.Errorf("kvstore: namespace %q does not exist", namespace)
	}
	delete(ns, key)
	return nil
}

func (m *Memory) Scan(ctx context.Context, namespace string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("kvstore: namespace %q does not exist", namespace)
	}

	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: ns[k]}
	}
	return entries, nil
}
