package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// ImportRecord is one completed import in the history view.
type ImportRecord struct {
	ID               string    `json:"id"`
	FileID           string    `json:"file_id"`
	TableName        string    `json:"table_name"`
	RowsImported     int       `json:"rows_imported"`
	DuplicateRows    int       `json:"duplicate_rows"`
	ValidationErrors int       `json:"validation_errors"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListImportHistory fetches completed imports, optionally scoped to a file.
func (c *Client) ListImportHistory(ctx context.Context, fileID string, limit int) ([]ImportRecord, error) {
	q := url.Values{}
	if fileID != "" {
		q.Set("file_id", fileID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var records []ImportRecord
	if err := c.getJSON(ctx, "/import-history?"+q.Encode(), &records); err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}
	return records, nil
}

// ListDuplicates fetches the duplicate rows recorded for one import.
func (c *Client) ListDuplicates(ctx context.Context, importID string) ([]models.DuplicateRow, error) {
	var rows []models.DuplicateRow
	path := "/import-history/" + url.PathEscape(importID) + "/duplicates"
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, fmt.Errorf("list duplicates: %w", err)
	}
	return rows, nil
}

// DuplicateDetail pairs a duplicate row with the existing row it collided
// with, so a merge can choose values per column.
type DuplicateDetail struct {
	Duplicate models.DuplicateRow `json:"duplicate"`
	Existing  map[string]string   `json:"existing"`
}

// GetDuplicate fetches one duplicate row with its colliding existing values.
func (c *Client) GetDuplicate(ctx context.Context, importID, dupID string) (*DuplicateDetail, error) {
	var detail DuplicateDetail
	path := "/import-history/" + url.PathEscape(importID) + "/duplicates/" + url.PathEscape(dupID)
	if err := c.getJSON(ctx, path, &detail); err != nil {
		return nil, fmt.Errorf("get duplicate %s: %w", dupID, err)
	}
	return &detail, nil
}

// MergeDuplicate applies the selected incoming values to the existing row
// and marks the duplicate resolved. The backend rejects already-resolved rows.
func (c *Client) MergeDuplicate(ctx context.Context, importID, dupID string, sel models.MergeSelection) error {
	path := "/import-history/" + url.PathEscape(importID) + "/duplicates/" + url.PathEscape(dupID) + "/merge"
	if err := c.postJSON(ctx, path, sel, nil); err != nil {
		return fmt.Errorf("merge duplicate %s: %w", dupID, err)
	}
	return nil
}

// ListValidationFailures fetches the rejected rows recorded for one import.
func (c *Client) ListValidationFailures(ctx context.Context, importID string) ([]models.ValidationFailureRow, error) {
	var rows []models.ValidationFailureRow
	path := "/import-history/" + url.PathEscape(importID) + "/validation-failures"
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, fmt.Errorf("list validation failures: %w", err)
	}
	return rows, nil
}

// RefreshValidationFailures asks the backend to re-check outstanding rows
// against the current validation rules.
func (c *Client) RefreshValidationFailures(ctx context.Context, importID string) ([]models.ValidationFailureRow, error) {
	var rows []models.ValidationFailureRow
	path := "/import-history/" + url.PathEscape(importID) + "/validation-failures/refresh"
	if err := c.postJSON(ctx, path, nil, &rows); err != nil {
		return nil, fmt.Errorf("refresh validation failures: %w", err)
	}
	return rows, nil
}

// ResolveValidationRequest picks exactly one resolution for a rejected row.
type ResolveValidationRequest struct {
	Action string            `json:"action"`
	Values map[string]string `json:"values,omitempty"`
	Note   string            `json:"note,omitempty"`
}

// ResolveValidationFailure applies a one-shot resolution to a rejected row.
func (c *Client) ResolveValidationFailure(ctx context.Context, importID, rowID string, req ResolveValidationRequest) error {
	path := "/import-history/" + url.PathEscape(importID) + "/validation-failures/" + url.PathEscape(rowID) + "/resolve"
	if err := c.postJSON(ctx, path, req, nil); err != nil {
		return fmt.Errorf("resolve validation failure %s: %w", rowID, err)
	}
	return nil
}
