package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// ArchiveCoordinator drives auto-processing of a multi-file archive or a
// multi-sheet workbook. Per-file results are learned either from the
// synchronous response or by rebuilding a summary from a terminal job's
// result metadata; both paths normalize through the same function.
type ArchiveCoordinator struct {
	backend Backend
	log     *slog.Logger
}

// NewArchiveCoordinator creates a coordinator.
func NewArchiveCoordinator(backend Backend, log *slog.Logger) *ArchiveCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &ArchiveCoordinator{backend: backend, log: log}
}

// KickOff submits the whole archive (or workbook) for background
// processing. The response carries a job id; per-file results are not
// returned synchronously unless the backend fell back to inline mode.
func (a *ArchiveCoordinator) KickOff(ctx context.Context, req client.AutoProcessRequest, workbook bool) (*client.AutoProcessResponse, error) {
	if req.Target != nil {
		resolved, err := ResolveTarget(*req.Target)
		if err != nil {
			return nil, err
		}
		req.Target = &resolved
	}

	var (
		resp *client.AutoProcessResponse
		err  error
	)
	if workbook {
		resp, err = a.backend.AutoProcessWorkbook(ctx, req)
	} else {
		resp, err = a.backend.AutoProcessArchive(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if resp.Async() {
		a.log.Info("batch processing queued", "file_id", req.FileID, "job_id", resp.JobID)
	} else if resp.Result != nil {
		a.log.Info("batch processed synchronously", "file_id", req.FileID,
			"processed", resp.Result.ProcessedFiles, "failed", resp.Result.FailedFiles)
	}
	return resp, nil
}

// Resume re-submits the archive anchored to a prior job as a checkpoint.
// retryFailedOnly=true reprocesses only previously-failed entries and
// preserves prior successes; false reprocesses every supported entry.
func (a *ArchiveCoordinator) Resume(ctx context.Context, req client.AutoProcessRequest, fromJobID string, retryFailedOnly bool) (*client.AutoProcessResponse, error) {
	if fromJobID == "" {
		return nil, fmt.Errorf("resume requires the prior job id")
	}
	resp, err := a.backend.ResumeArchive(ctx, req, fromJobID, retryFailedOnly)
	if err != nil {
		return nil, err
	}
	a.log.Info("archive resume submitted", "file_id", req.FileID,
		"from_job_id", fromJobID, "retry_failed_only", retryFailedOnly)
	return resp, nil
}

// RebuildSummary reconstructs the per-file result set from a terminal
// job's result metadata. ok is false when the job is still running or
// carries no archive metadata.
func (a *ArchiveCoordinator) RebuildSummary(ctx context.Context, jobID string) (*models.ArchiveAutoProcessResult, bool, error) {
	job, err := a.backend.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if !job.Status.Terminal() {
		return nil, false, nil
	}
	summary, ok := models.ArchiveResultFromJobMeta(job)
	if !ok {
		return nil, false, nil
	}
	return &summary, true, nil
}

// ---- controller glue ----

// ArchiveOptions configure a batch kick-off or resume.
type ArchiveOptions struct {
	ConflictResolution string
	Target             *client.SharedTableTarget
	SkipDuplicateCheck bool
	Instruction        string
}

func (o ArchiveOptions) request(fileID string) client.AutoProcessRequest {
	return client.AutoProcessRequest{
		FileID:             fileID,
		ConflictResolution: o.ConflictResolution,
		Target:             o.Target,
		SkipDuplicateCheck: o.SkipDuplicateCheck,
		Instruction:        o.Instruction,
	}
}

// RunBatch kicks off archive (or workbook) auto-processing for the loaded
// file through the admission gate, then re-fetches the file: batch flows
// return immediately with a job id and completion is observed only via
// polling.
func (c *Controller) RunBatch(ctx context.Context, opts ArchiveOptions) (*client.AutoProcessResponse, error) {
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()

	c.mu.Lock()
	fileID := c.state.FileID
	workbook := c.state.File != nil && c.state.File.IsWorkbook()
	c.mu.Unlock()

	coord := NewArchiveCoordinator(c.backend, c.log)
	resp, err := coord.KickOff(ctx, opts.request(fileID), workbook)
	if err != nil {
		return nil, err
	}

	c.afterBatchSubmit(ctx, resp)
	return resp, nil
}

// ResumeBatch re-submits the loaded archive anchored to a prior job.
func (c *Controller) ResumeBatch(ctx context.Context, fromJobID string, retryFailedOnly bool, opts ArchiveOptions) (*client.AutoProcessResponse, error) {
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()

	c.mu.Lock()
	fileID := c.state.FileID
	c.mu.Unlock()

	coord := NewArchiveCoordinator(c.backend, c.log)
	resp, err := coord.Resume(ctx, opts.request(fileID), fromJobID, retryFailedOnly)
	if err != nil {
		return nil, err
	}

	c.afterBatchSubmit(ctx, resp)
	return resp, nil
}

// afterBatchSubmit records the outcome of a batch submission: a
// synchronous result becomes the archive summary immediately, an async
// job id arms the poller. Either way the file is re-fetched.
func (c *Controller) afterBatchSubmit(ctx context.Context, resp *client.AutoProcessResponse) {
	if resp.Result != nil {
		normalized := models.NormalizeArchiveResult(*resp.Result)
		c.mu.Lock()
		c.state.ArchiveSummary = &normalized
		c.mu.Unlock()
	}

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("post-submit refresh failed", "error", err)
	}

	if resp.Async() {
		c.watchJob(ctx, resp.JobID)
	}
}

// ArchiveSummary returns the latest per-file result set, rebuilding it
// from the job's terminal metadata when it is not in state yet.
func (c *Controller) ArchiveSummary(ctx context.Context, jobID string) (*models.ArchiveAutoProcessResult, error) {
	c.mu.Lock()
	cached := c.state.ArchiveSummary
	c.mu.Unlock()
	if cached != nil && (jobID == "" || cached.JobID == jobID) {
		return cached, nil
	}
	if jobID == "" {
		return nil, fmt.Errorf("no archive summary available")
	}

	coord := NewArchiveCoordinator(c.backend, c.log)
	summary, ok, err := coord.RebuildSummary(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("job %s has no archive summary yet", jobID)
	}

	c.mu.Lock()
	c.state.ArchiveSummary = summary
	c.mu.Unlock()
	return summary, nil
}
