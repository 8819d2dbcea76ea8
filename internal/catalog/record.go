package catalog

import (
	"fmt"
	"strconv"
)

// QueryResult is the payload returned by Get.
type QueryResult struct {
	Data      []map[string]string `json:"data"`
	Total     int                 `json:"total"`
	Timestamp string              `json:"timestamp"`
}

// MutationResult is the payload returned by Create, Update, and Delete.
type MutationResult struct {
	Success   bool   `json:"success"`
	Action    string `json:"action"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// Stored cells are always strings. Numeric JSON values are formatted without
// a trailing fraction when integral, so a caller sending `"ID": 42` still
// matches a stored "42" (IDs are strings by contract).
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// cellAt tolerates rows shorter than the header row.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// recordFromRow projects one row onto header-keyed fields.
func recordFromRow(headers []string, row []string) map[string]string {
	rec := make(map[string]string, len(headers))
	for i, h := range headers {
		rec[h] = cellAt(row, i)
	}
	return rec
}
