package store

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps all tables in process memory. It intentionally favors clarity
// over performance and is the default backend for development and tests.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	store   *Memory
	name    string
	headers []string
	rows    [][]string
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memoryTable)}
}

func (m *Memory) ListTables(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Table(_ context.Context, name string) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[name]; ok {
		return t, nil
	}
	t := &memoryTable{store: m, name: name, headers: DefaultHeaders(name)}
	m.tables[name] = t
	return t, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (t *memoryTable) Name() string { return t.name }

func (t *memoryTable) Headers(_ context.Context) ([]string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return append([]string(nil), t.headers...), nil
}

func (t *memoryTable) Rows(_ context.Context) ([][]string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append([]string(nil), row...)
	}
	return rows, nil
}

func (t *memoryTable) Append(_ context.Context, row []string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

func (t *memoryTable) SetCell(_ context.Context, rowIdx, colIdx int, value string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return ErrRowOutOfRange
	}
	row := t.rows[rowIdx]
	// Rows may be shorter than the header row; grow on demand like a sheet.
	for len(row) <= colIdx {
		row = append(row, "")
	}
	row[colIdx] = value
	t.rows[rowIdx] = row
	return nil
}

func (t *memoryTable) DeleteRow(_ context.Context, rowIdx int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return ErrRowOutOfRange
	}
	t.rows = append(t.rows[:rowIdx], t.rows[rowIdx+1:]...)
	return nil
}
