package client

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// AutoProcessRequest submits a workbook or archive for background mapping.
type AutoProcessRequest struct {
	FileID             string
	ConflictResolution string
	Target             *SharedTableTarget
	SkipDuplicateCheck bool
	Instruction        string
}

// AutoProcessResponse is either a job id (async path) or, in synchronous
// fallback, a full per-file result set.
type AutoProcessResponse struct {
	JobID  string                           `json:"job_id,omitempty"`
	Result *models.ArchiveAutoProcessResult `json:"result,omitempty"`
}

// Async reports whether the backend queued a job instead of answering inline.
func (r *AutoProcessResponse) Async() bool {
	return r.JobID != "" && r.Result == nil
}

// AutoProcessWorkbook submits a multi-sheet workbook for background mapping.
func (c *Client) AutoProcessWorkbook(ctx context.Context, req AutoProcessRequest) (*AutoProcessResponse, error) {
	return c.autoProcess(ctx, "/auto-process-workbook", req, autoProcessFields(req))
}

// AutoProcessArchive submits a ZIP archive for background mapping.
func (c *Client) AutoProcessArchive(ctx context.Context, req AutoProcessRequest) (*AutoProcessResponse, error) {
	return c.autoProcess(ctx, "/auto-process-archive", req, autoProcessFields(req))
}

// ResumeArchive re-submits an archive anchored to a prior job's results.
// retryFailedOnly=true reprocesses only previously-failed entries and
// preserves prior successes; false reprocesses every supported entry.
func (c *Client) ResumeArchive(ctx context.Context, req AutoProcessRequest, fromJobID string, retryFailedOnly bool) (*AutoProcessResponse, error) {
	fields := autoProcessFields(req)
	fields["from_job_id"] = fromJobID
	if retryFailedOnly {
		fields["resume_failed_entries_only"] = "true"
	} else {
		fields["resume_failed_entries_only"] = "false"
	}
	return c.autoProcess(ctx, "/auto-process-archive/resume", req, fields)
}

func (c *Client) autoProcess(ctx context.Context, path string, req AutoProcessRequest, fields map[string]string) (*AutoProcessResponse, error) {
	var resp AutoProcessResponse
	if err := c.postForm(ctx, path, fields, &resp); err != nil {
		return nil, fmt.Errorf("auto-process %s: %w", req.FileID, err)
	}
	if resp.Result != nil {
		normalized := models.NormalizeArchiveResult(*resp.Result)
		resp.Result = &normalized
	}
	return &resp, nil
}

func autoProcessFields(req AutoProcessRequest) map[string]string {
	fields := map[string]string{
		"file_id": req.FileID,
	}
	if req.ConflictResolution != "" {
		fields["conflict_resolution"] = req.ConflictResolution
	}
	if req.SkipDuplicateCheck {
		fields["skip_duplicate_check"] = "true"
	}
	if req.Instruction != "" {
		fields["instruction"] = req.Instruction
	}
	addTargetFields(fields, req.Target)
	return fields
}
