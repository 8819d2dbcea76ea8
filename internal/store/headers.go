package store

import "strings"

// Well-known table names.
const (
	TableSystems      = "systems"
	TableRequirements = "requirements"
	TableDocuments    = "documents"
	TableAccessLog    = "access_log"
	TableDeletionLog  = "deletion_log"
	TableAuthLog      = "auth_log"
)

var genericHeaders = []string{
	"ID", "Name", "Description", "Status",
	"Created Date", "Created By", "Last Updated", "Last Updated By",
}

var defaultHeaders = map[string][]string{
	TableSystems: {
		"ID", "Name", "Description", "Business Owner", "Technical Owner",
		"Overall Status", "Category", "System Type", "Go Live Date", "Goal",
		"Created Date", "Created By", "Last Updated", "Last Updated By",
	},
	TableRequirements: {
		"ID", "System ID", "Title", "Type", "Priority",
		"Status", "Created Date", "Created By", "Last Updated", "Last Updated By",
	},
	TableDocuments: {
		"System ID", "Document Type", "Document Name",
		"Category", "Completed", "Reviewer", "Document Link",
		"Created Date", "Created By", "Last Updated", "Last Updated By",
	},
	TableAccessLog: {
		"Timestamp", "Email", "Action", "Status", "Processing Time (ms)",
	},
	TableDeletionLog: {
		"Timestamp", "User Email", "Sheet Name", "Record ID",
	},
	TableAuthLog: {
		"Timestamp", "User Email", "Action", "Status",
	},
}

// DefaultHeaders returns the header row a table is created with. Ad hoc
// tables fall back to the generic header set.
func DefaultHeaders(name string) []string {
	if h, ok := defaultHeaders[strings.ToLower(name)]; ok {
		return append([]string(nil), h...)
	}
	return append([]string(nil), genericHeaders...)
}
