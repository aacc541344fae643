// Package reconcile resolves rows skipped as duplicates or rejected by
// validation after an import completes.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// DuplicateBackend is the duplicate-reconciliation slice of the REST client.
type DuplicateBackend interface {
	ListDuplicates(ctx context.Context, importID string) ([]models.DuplicateRow, error)
	GetDuplicate(ctx context.Context, importID, dupID string) (*client.DuplicateDetail, error)
	MergeDuplicate(ctx context.Context, importID, dupID string, sel models.MergeSelection) error
}

// BulkMergeResult reports a sequential bulk merge: how many rows merged
// before the loop stopped, and which row failed, if any.
type BulkMergeResult struct {
	Merged   int
	FailedID string
	Err      error
}

// Duplicates reconciles rows skipped during import because they matched
// an existing row on uniqueness columns.
type Duplicates struct {
	backend DuplicateBackend
	log     *slog.Logger
}

// NewDuplicates creates a duplicate reconciliation engine.
func NewDuplicates(backend DuplicateBackend, log *slog.Logger) *Duplicates {
	if log == nil {
		log = slog.Default()
	}
	return &Duplicates{backend: backend, log: log}
}

// Selectable returns the rows still eligible for reconciliation. Resolved
// rows are filtered out of the selectable set at read time.
func (d *Duplicates) Selectable(ctx context.Context, importID string) ([]models.DuplicateRow, error) {
	rows, err := d.backend.ListDuplicates(ctx, importID)
	if err != nil {
		return nil, err
	}
	unresolved := rows[:0:0]
	for _, row := range rows {
		if !row.Resolved() {
			unresolved = append(unresolved, row)
		}
	}
	return unresolved, nil
}

// BulkMerge merges the selected rows sequentially, applying each row's
// current values to every column, and stops at the first failure. Partial
// success stays visible: the result reports how many rows merged before
// the loop aborted. A failure mid-loop likely indicates a systemic
// problem (stale uniqueness columns), so the failed row is never blindly
// retried.
func (d *Duplicates) BulkMerge(ctx context.Context, importID string, ids []string) BulkMergeResult {
	var result BulkMergeResult
	for _, id := range ids {
		sel, err := d.fullSelection(ctx, importID, id)
		if err == nil {
			err = d.backend.MergeDuplicate(ctx, importID, id, sel)
		}
		if err != nil {
			d.log.Warn("bulk merge stopped", "import_id", importID, "duplicate_id", id,
				"merged", result.Merged, "error", err)
			result.FailedID = id
			result.Err = err
			return result
		}
		result.Merged++
	}
	return result
}

// MergeOne merges a single row, applying only the columns explicitly
// marked "use incoming". The row becomes resolved and leaves the
// selectable set.
func (d *Duplicates) MergeOne(ctx context.Context, importID, dupID string, sel models.MergeSelection) error {
	any := false
	for _, use := range sel.Columns {
		if use {
			any = true
			break
		}
	}
	if !any && sel.Note == "" {
		return fmt.Errorf("merge selection is empty: mark at least one column or add a note")
	}
	return d.backend.MergeDuplicate(ctx, importID, dupID, sel)
}

// DefaultSelection fetches the row and computes the default merge choice:
// use the incoming value wherever existing and incoming differ.
func (d *Duplicates) DefaultSelection(ctx context.Context, importID, dupID string) (models.MergeSelection, error) {
	detail, err := d.backend.GetDuplicate(ctx, importID, dupID)
	if err != nil {
		return models.MergeSelection{}, err
	}
	return models.DefaultMergeSelection(detail.Duplicate.Values, detail.Existing), nil
}

// fullSelection marks every column "use incoming" for a bulk merge.
func (d *Duplicates) fullSelection(ctx context.Context, importID, dupID string) (models.MergeSelection, error) {
	detail, err := d.backend.GetDuplicate(ctx, importID, dupID)
	if err != nil {
		return models.MergeSelection{}, err
	}
	cols := make(map[string]bool, len(detail.Duplicate.Values))
	for name := range detail.Duplicate.Values {
		cols[name] = true
	}
	return models.MergeSelection{Columns: cols}, nil
}
