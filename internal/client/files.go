package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// GetFile fetches the authoritative file record plus active-job snapshot.
func (c *Client) GetFile(ctx context.Context, id string) (*models.UploadedFile, error) {
	var file models.UploadedFile
	if err := c.getJSON(ctx, "/uploaded-files/"+url.PathEscape(id), &file); err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &file, nil
}

// GetJob fetches one mapping job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := c.getJSON(ctx, "/import-jobs/"+url.PathEscape(id), &job); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// ListJobs fetches the most recent jobs for a file, newest first.
func (c *Client) ListJobs(ctx context.Context, fileID string, limit int) ([]models.ImportJob, error) {
	q := url.Values{}
	if fileID != "" {
		q.Set("file_id", fileID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var jobs []models.ImportJob
	if err := c.getJSON(ctx, "/import-jobs?"+q.Encode(), &jobs); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// LatestJob returns the newest job for a file, or nil when none exists.
func (c *Client) LatestJob(ctx context.Context, fileID string) (*models.ImportJob, error) {
	jobs, err := c.ListJobs(ctx, fileID, 1)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}
