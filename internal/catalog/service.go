// Package catalog implements the CRUD operations over the table store:
// querying with substring filters, creation with sequential or generic IDs,
// partial updates, and cascading deletes with an audit trail.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"syscatalog/internal/audit"
	"syscatalog/internal/store"
	"syscatalog/pkg/catalogerrors"
)

const (
	fieldID            = "ID"
	fieldSystemID      = "System ID"
	fieldCreatedBy     = "Created By"
	fieldCreatedDate   = "Created Date"
	fieldLastUpdated   = "Last Updated"
	fieldLastUpdatedBy = "Last Updated By"
)

// requiredFields are enforced on create wherever the column exists in the
// table's schema.
var requiredFields = []string{fieldID, "Name"}

type Service struct {
	store  store.Store
	audit  *audit.Logger
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*Service)

// WithClock sets the timestamp source for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(st store.Store, auditLog *audit.Logger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, audit: auditLog, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns all rows projected to header columns, filtered by
// case-insensitive substring match. Filter keys absent from the schema are
// ignored and never exclude a row.
func (s *Service) Get(ctx context.Context, tableName string, filters map[string]any) (*QueryResult, error) {
	_, headers, rows, err := s.open(ctx, tableName)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := recordFromRow(headers, row)
		if matchesFilters(rec, filters) {
			results = append(results, rec)
		}
	}

	return &QueryResult{
		Data:      results,
		Total:     len(results),
		Timestamp: s.timestamp(),
	}, nil
}

func matchesFilters(rec map[string]string, filters map[string]any) bool {
	for key, want := range filters {
		have, ok := rec[key]
		if !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(have), strings.ToLower(cellString(want))) {
			return false
		}
	}
	return true
}

// Create appends one record. When the caller supplies no ID, one is derived
// from the record's type namespace (INT/EXT for systems, REQ/NREQ for
// requirements) or generated generically.
func (s *Service) Create(ctx context.Context, tableName string, data map[string]any, actor string) (*MutationResult, error) {
	if data == nil {
		return nil, catalogerrors.New(catalogerrors.CodeValidationError, "invalid data object for POST request")
	}
	tbl, headers, rows, err := s.open(ctx, tableName)
	if err != nil {
		return nil, err
	}

	id := cellString(data[fieldID])
	if id == "" {
		if prefix := idPrefix(tableName, data); prefix != "" {
			id = s.nextSequentialID(headers, rows, prefix)
		} else {
			id = GenericID()
		}
		data[fieldID] = id
	}

	now := s.timestamp()
	data[fieldCreatedBy] = actor
	data[fieldCreatedDate] = now
	data[fieldLastUpdated] = now
	data[fieldLastUpdatedBy] = actor

	if err := validateRequired(data, headers); err != nil {
		return nil, err
	}

	row := make([]string, len(headers))
	for i, h := range headers {
		if v, ok := data[h]; ok {
			row[i] = cellString(v)
		}
	}
	if err := tbl.Append(ctx, row); err != nil {
		return nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "failed to create record")
	}

	return &MutationResult{Success: true, Action: "created", ID: id, Timestamp: now}, nil
}

// Update refreshes the audit columns and writes every column present in data
// except the immutable creation fields. Columns not mentioned are untouched.
func (s *Service) Update(ctx context.Context, tableName string, data map[string]any, actor string) (*MutationResult, error) {
	tbl, headers, id, rowIdx, err := s.locate(ctx, tableName, data, "PUT")
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	data[fieldLastUpdated] = now
	data[fieldLastUpdatedBy] = actor

	for colIdx, header := range headers {
		if header == fieldCreatedBy || header == fieldCreatedDate {
			continue
		}
		v, ok := data[header]
		if !ok {
			continue
		}
		if err := tbl.SetCell(ctx, rowIdx, colIdx, cellString(v)); err != nil {
			return nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "failed to update record")
		}
	}

	return &MutationResult{Success: true, Action: "updated", ID: id, Timestamp: now}, nil
}

// Delete physically removes the row, logs the deletion, and cascades over
// requirements when a system is removed.
func (s *Service) Delete(ctx context.Context, tableName string, data map[string]any, actor string) (*MutationResult, error) {
	tbl, _, id, rowIdx, err := s.locate(ctx, tableName, data, "DELETE")
	if err != nil {
		return nil, err
	}

	if err := tbl.DeleteRow(ctx, rowIdx); err != nil {
		return nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "failed to delete record")
	}
	s.audit.Deletion(ctx, actor, tbl.Name(), id)

	if strings.ToLower(tableName) == store.TableSystems {
		if err := s.cascadeRequirements(ctx, id, actor); err != nil {
			return nil, err
		}
	}

	return &MutationResult{Success: true, Action: "deleted", ID: id, Timestamp: s.timestamp()}, nil
}

// cascadeRequirements removes every requirement referencing the deleted
// system, in reverse row order so indices stay valid across deletions. Each
// removal is individually logged.
func (s *Service) cascadeRequirements(ctx context.Context, systemID, actor string) error {
	tbl, headers, rows, err := s.open(ctx, store.TableRequirements)
	if err != nil {
		return err
	}
	sysIdx := columnIndex(headers, fieldSystemID)
	idIdx := columnIndex(headers, fieldID)
	if sysIdx == -1 {
		return nil
	}

	for i := len(rows) - 1; i >= 0; i-- {
		if cellAt(rows[i], sysIdx) != systemID {
			continue
		}
		if err := tbl.DeleteRow(ctx, i); err != nil {
			return catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "failed to cascade delete requirement")
		}
		s.audit.Deletion(ctx, actor, store.TableRequirements, cellAt(rows[i], idIdx))
	}
	return nil
}

func (s *Service) open(ctx context.Context, tableName string) (store.Table, []string, [][]string, error) {
	tbl, err := s.store.Table(ctx, tableName)
	if err != nil {
		return nil, nil, nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "unable to open table "+tableName)
	}
	headers, err := tbl.Headers(ctx)
	if err != nil {
		return nil, nil, nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "unable to read headers for "+tableName)
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, nil, nil, catalogerrors.Wrap(err, catalogerrors.CodeStoreWriteError, "unable to read rows for "+tableName)
	}
	return tbl, headers, rows, nil
}

// locate resolves the target row for PUT/DELETE by its ID field.
func (s *Service) locate(ctx context.Context, tableName string, data map[string]any, method string) (store.Table, []string, string, int, error) {
	id := ""
	if data != nil {
		id = cellString(data[fieldID])
	}
	if id == "" {
		return nil, nil, "", 0, catalogerrors.New(catalogerrors.CodeMissingField, "missing ID field for "+method+" request")
	}

	tbl, headers, rows, err := s.open(ctx, tableName)
	if err != nil {
		return nil, nil, "", 0, err
	}
	idIdx := columnIndex(headers, fieldID)
	if idIdx == -1 {
		return nil, nil, "", 0, catalogerrors.New(catalogerrors.CodeValidationError, "table "+tableName+" does not have an ID column")
	}
	for i, row := range rows {
		if cellAt(row, idIdx) == id {
			return tbl, headers, id, i, nil
		}
	}
	return nil, nil, "", 0, catalogerrors.Newf(catalogerrors.CodeRecordNotFound, "record with ID '%s' not found", id)
}

// nextSequentialID never fails: any irregularity falls back to a generic ID.
func (s *Service) nextSequentialID(headers []string, rows [][]string, prefix string) string {
	idIdx := columnIndex(headers, fieldID)
	if idIdx == -1 {
		return GenericID()
	}
	existing := make([]string, 0, len(rows))
	for _, row := range rows {
		existing = append(existing, cellAt(row, idIdx))
	}
	return NextSequentialID(existing, prefix)
}

func validateRequired(data map[string]any, headers []string) error {
	for _, field := range requiredFields {
		if columnIndex(headers, field) == -1 {
			continue
		}
		if strings.TrimSpace(cellString(data[field])) == "" {
			return catalogerrors.Newf(catalogerrors.CodeValidationError, "required field '%s' is missing or empty", field)
		}
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.clock().UTC().Format(time.RFC3339)
}
