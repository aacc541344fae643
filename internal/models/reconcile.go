package models

import "time"

// DuplicateRow is a record skipped during import because it matched an
// existing row on uniqueness columns. Once resolved it is immutable and
// excluded from further selection.
type DuplicateRow struct {
	ID         string            `json:"id"`
	ImportID   string            `json:"import_id"`
	RowNumber  int               `json:"row_number"`
	Values     map[string]string `json:"values"`
	DetectedAt time.Time         `json:"detected_at"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	Resolution *string    `json:"resolution,omitempty"`
}

// Resolved reports whether the row has already been reconciled.
func (d *DuplicateRow) Resolved() bool {
	return d.ResolvedAt != nil
}

// Validation failure resolution actions. Exactly one applies per row.
const (
	ResolutionDiscarded         = "discarded"
	ResolutionInsertedAsIs      = "inserted_as_is"
	ResolutionInsertedCorrected = "inserted_corrected"
)

// ValidationFailureRow is a record rejected during import by a column-level
// validation rule. Resolution is one-shot; re-resolution is not permitted.
type ValidationFailureRow struct {
	ID         string            `json:"id"`
	ImportID   string            `json:"import_id"`
	RowNumber  int               `json:"row_number"`
	Values     map[string]string `json:"values"`
	Errors     map[string]string `json:"errors,omitempty"`
	DetectedAt time.Time         `json:"detected_at"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	Resolution *string    `json:"resolution,omitempty"`
}

// Resolved reports whether the row has already been resolved.
func (v *ValidationFailureRow) Resolved() bool {
	return v.ResolvedAt != nil
}

// MergeSelection maps column name -> "use the incoming value instead of the
// existing one" for a single duplicate row merge.
type MergeSelection struct {
	Columns map[string]bool `json:"columns"`
	Note    string          `json:"note,omitempty"`
}

// DefaultMergeSelection marks every column whose incoming value differs from
// the existing one. Columns absent from existing are treated as differing.
func DefaultMergeSelection(incoming, existing map[string]string) MergeSelection {
	cols := make(map[string]bool, len(incoming))
	for name, val := range incoming {
		cur, ok := existing[name]
		cols[name] = !ok || cur != val
	}
	return MergeSelection{Columns: cols}
}
