// Package store adapts a row-oriented, header-defined datastore to logical
// table operations. Callers never see header-row offsets or 1-based range
// arithmetic; indices here are always 0-based data-row indices.
package store

import (
	"context"

	"syscatalog/pkg/catalogerrors"
)

// Store is interface-driven so the in-memory and PostgreSQL backends can be
// swapped without rewiring business code.
type Store interface {
	// ListTables returns the names of all existing tables.
	ListTables(ctx context.Context) ([]string, error)
	// Table returns the named table, creating it with its default headers on
	// first use.
	Table(ctx context.Context, name string) (Table, error)
	// Ping reports backend connectivity.
	Ping(ctx context.Context) error
}

// Table exposes logical row operations over one named row collection. The
// header row is fixed at creation; data rows align positionally with it.
type Table interface {
	Name() string
	Headers(ctx context.Context) ([]string, error)
	// Rows returns all data rows, header excluded.
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	SetCell(ctx context.Context, rowIdx, colIdx int, value string) error
	DeleteRow(ctx context.Context, rowIdx int) error
}

// ErrRowOutOfRange is returned for indices past the current data rows.
var ErrRowOutOfRange = catalogerrors.New(catalogerrors.CodeStoreWriteError, "row index out of range")
