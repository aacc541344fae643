package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// Flow is the sub-flow that applies to a loaded file.
type Flow string

const (
	FlowAuto        Flow = "auto"
	FlowInteractive Flow = "interactive"
	FlowArchive     Flow = "archive"
)

// State is the externally-visible orchestration state for one file. It is
// transitioned only through Controller operations, never mutated directly.
type State struct {
	FileID    string
	File      *models.UploadedFile
	ActiveJob *models.ImportJob

	ThreadID       string
	ArchiveSummary *models.ArchiveAutoProcessResult

	// Post-import details, loaded after a successful completion.
	History           []client.ImportRecord
	DuplicatePreview  []models.DuplicateRow
	ValidationPreview []models.ValidationFailureRow
}

// Controller owns the lifecycle of one uploaded file: it decides which
// sub-flow applies, is the single point allowed to submit a new mapping
// job, and re-fetches the file after every mutating call because job
// completion may race the initiating request.
type Controller struct {
	backend   Backend
	poller    *Poller
	escalator *Escalator
	log       *slog.Logger

	// onJobDone is invoked after a watched job reaches a terminal state
	// and the file has been re-fetched.
	onJobDone func(*models.ImportJob)

	mu       sync.Mutex
	inFlight bool
	state    State
	conv     *Conversation
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithPollInterval overrides the job poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.poller = NewPoller(c.backend, d, c.log) }
}

// WithJobDoneHook registers a callback fired after a watched job finishes
// and the file has been refreshed.
func WithJobDoneHook(fn func(*models.ImportJob)) Option {
	return func(c *Controller) { c.onJobDone = fn }
}

// NewController creates the orchestration controller for one file at a time.
func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.poller == nil {
		c.poller = NewPoller(backend, DefaultPollInterval, c.log)
	}
	c.escalator = NewEscalator(backend, c.log)
	return c
}

// State returns a snapshot of the current orchestration state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadFile fetches the authoritative file record and resets the
// orchestration state onto it. Switching files cancels any polling task
// and discards any open conversation thread.
func (c *Controller) LoadFile(ctx context.Context, id string) (*models.UploadedFile, error) {
	file, err := c.backend.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	switching := c.state.FileID != "" && c.state.FileID != id
	c.state = State{FileID: id, File: file}
	if switching {
		c.conv = nil
	}
	c.mu.Unlock()

	if switching {
		c.poller.Stop()
	}
	c.armPoller(ctx, file)

	c.log.Debug("file loaded", "file_id", id, "status", file.Status, "flow", c.DefaultFlow())
	return file, nil
}

// Refresh re-fetches the loaded file. Called after every mutating call;
// the call's own response is never trusted as the post-operation state.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	id := c.state.FileID
	c.mu.Unlock()
	if id == "" {
		return ErrNoFile
	}

	file, err := c.backend.GetFile(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state.File = file
	if file.ActiveJob == nil || !file.ActiveJob.Status.Active() {
		c.state.ActiveJob = nil
	}
	c.mu.Unlock()

	c.armPoller(ctx, file)
	return nil
}

// DefaultFlow picks which sub-flow presents for the loaded file.
// Interactive is always available on demand; it is the default only when
// a previous automatic attempt left the file failed.
func (c *Controller) DefaultFlow() Flow {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.File == nil {
		return FlowAuto
	}
	switch {
	case c.state.File.IsArchive():
		return FlowArchive
	case c.state.File.Status == models.FileStatusFailed:
		return FlowInteractive
	default:
		return FlowAuto
	}
}

// EnsureJobAvailable is the single admission-control gate all mutating
// operations pass through. It refuses whenever the derived active-job
// state is non-terminal and the file is not in failed status; a failed
// file licenses a retry even if job bookkeeping is stale.
func (c *Controller) EnsureJobAvailable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureJobAvailableLocked()
}

func (c *Controller) ensureJobAvailableLocked() error {
	if c.state.File == nil {
		return ErrNoFile
	}
	if c.state.File.Status == models.FileStatusFailed {
		return nil
	}
	if c.state.ActiveJob != nil && c.state.ActiveJob.Status.Active() {
		return ErrJobActive
	}
	if aj := c.state.File.ActiveJob; aj != nil && aj.Status.Active() {
		return ErrJobActive
	}
	return nil
}

// beginMutation acquires the one-mutating-operation-per-file slot after
// passing the admission gate. Checked immediately before submission.
func (c *Controller) beginMutation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrMutationInFlight
	}
	if err := c.ensureJobAvailableLocked(); err != nil {
		return err
	}
	c.inFlight = true
	return nil
}

func (c *Controller) endMutation() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// armPoller starts or re-arms the polling task when the file carries an
// active job, and records the job snapshot for observers.
func (c *Controller) armPoller(ctx context.Context, file *models.UploadedFile) {
	if file.ActiveJob == nil || !file.ActiveJob.Status.Active() {
		return
	}
	c.watchJob(ctx, file.ActiveJob.ID)
}

// watchJob arms the poller on a job id. The poller guarantees one live
// task and exactly one terminal callback.
func (c *Controller) watchJob(ctx context.Context, jobID string) {
	c.poller.Watch(ctx, jobID,
		func(job *models.ImportJob) {
			c.mu.Lock()
			c.state.ActiveJob = job
			c.mu.Unlock()
		},
		func(job *models.ImportJob) {
			c.handleJobDone(ctx, job)
		},
	)
}

// handleJobDone runs when a watched job reaches a terminal state: the
// file is re-fetched for the authoritative outcome, archive summaries are
// rebuilt from the job's terminal metadata, and post-import details load.
func (c *Controller) handleJobDone(ctx context.Context, job *models.ImportJob) {
	c.mu.Lock()
	c.state.ActiveJob = nil
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("post-job file refresh failed", "job_id", job.ID, "error", err)
	}

	if summary, ok := models.ArchiveResultFromJobMeta(job); ok {
		c.mu.Lock()
		c.state.ArchiveSummary = &summary
		c.mu.Unlock()
	}

	if c.fileStatus() == models.FileStatusMapped {
		c.loadPostImportDetails(ctx)
	}

	if c.onJobDone != nil {
		c.onJobDone(job)
	}
}

func (c *Controller) fileStatus() models.FileStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.File == nil {
		return ""
	}
	return c.state.File.Status
}

// AutoOptions configure an automatic mapping attempt.
type AutoOptions struct {
	AnalysisMode       string
	ConflictResolution string
	MaxIterations      int
	Target             *client.SharedTableTarget
	SkipDuplicateCheck bool
	Instruction        string
	SheetName          string

	// DisableRecovery skips the AI escalation on failure.
	DisableRecovery bool
}

// AutoOutcome reports an automatic attempt plus any recovery escalation.
type AutoOutcome struct {
	Result   *client.AnalyzeFileResult
	Recovery *RecoveryOutcome
}

// RunAuto performs one automatic mapping attempt. On failure it attempts
// exactly one AI-assisted recovery escalation before surfacing the error;
// the original failure is reported annotated with the escalation's result.
func (c *Controller) RunAuto(ctx context.Context, opts AutoOptions) (*AutoOutcome, error) {
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()

	c.mu.Lock()
	fileID := c.state.FileID
	target := opts.Target
	c.mu.Unlock()

	if target != nil {
		resolved, err := ResolveTarget(*target)
		if err != nil {
			return nil, err
		}
		target = &resolved
	}

	result, err := c.backend.AnalyzeFile(ctx, client.AnalyzeFileRequest{
		FileID:             fileID,
		AnalysisMode:       opts.AnalysisMode,
		ConflictResolution: opts.ConflictResolution,
		MaxIterations:      opts.MaxIterations,
		Target:             target,
		SkipDuplicateCheck: opts.SkipDuplicateCheck,
		Instruction:        opts.Instruction,
	})

	outcome := &AutoOutcome{Result: result}

	failure := ""
	switch {
	case err != nil:
		failure = err.Error()
	case !result.Success:
		failure = result.Error
	}

	if failure == "" {
		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			c.log.Warn("post-import refresh failed", "file_id", fileID, "error", refreshErr)
		}
		c.loadPostImportDetails(ctx)
		return outcome, nil
	}

	c.log.Warn("automatic mapping failed", "file_id", fileID, "error", failure)

	if !opts.DisableRecovery {
		recovery := c.escalator.Recover(ctx, RecoveryRequest{
			FileID:      fileID,
			FailureMsg:  failure,
			SheetName:   opts.SheetName,
			Instruction: opts.Instruction,
		})
		outcome.Recovery = &recovery

		if recovery.Recovered {
			if refreshErr := c.Refresh(ctx); refreshErr != nil {
				c.log.Warn("post-recovery refresh failed", "file_id", fileID, "error", refreshErr)
			}
			c.loadPostImportDetails(ctx)
			return outcome, nil
		}
	}

	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		c.log.Warn("post-failure refresh failed", "file_id", fileID, "error", refreshErr)
	}

	if outcome.Recovery != nil {
		return outcome, fmt.Errorf("%w: %s (recovery: %s)", ErrRecoveryExhausted, failure, outcome.Recovery.Reason)
	}
	return outcome, fmt.Errorf("automatic mapping failed: %s", failure)
}

// FailureBanner returns the generic file-level failure message, or "" when
// it should be suppressed because a partial-failure archive summary is the
// more useful view.
func (c *Controller) FailureBanner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.File == nil || c.state.File.Status != models.FileStatusFailed {
		return ""
	}
	if c.state.ArchiveSummary.HasPartialFailure() {
		return ""
	}
	return c.state.File.LastError()
}

// loadPostImportDetails loads import history plus duplicate/validation
// previews. These are leaf read-only fetches; failures are logged, never
// propagated into the state machine.
func (c *Controller) loadPostImportDetails(ctx context.Context) {
	c.mu.Lock()
	fileID := c.state.FileID
	c.mu.Unlock()
	if fileID == "" {
		return
	}

	history, err := c.backend.ListImportHistory(ctx, fileID, 10)
	if err != nil {
		c.log.Warn("load import history failed", "file_id", fileID, "error", err)
		return
	}

	c.mu.Lock()
	c.state.History = history
	c.mu.Unlock()

	if len(history) == 0 {
		return
	}
	latest := history[0]

	if latest.DuplicateRows > 0 {
		if dups, err := c.backend.ListDuplicates(ctx, latest.ID); err != nil {
			c.log.Warn("load duplicate preview failed", "import_id", latest.ID, "error", err)
		} else {
			c.mu.Lock()
			c.state.DuplicatePreview = dups
			c.mu.Unlock()
		}
	}

	if latest.ValidationErrors > 0 {
		if rows, err := c.backend.ListValidationFailures(ctx, latest.ID); err != nil {
			c.log.Warn("load validation preview failed", "import_id", latest.ID, "error", err)
		} else {
			c.mu.Lock()
			c.state.ValidationPreview = rows
			c.mu.Unlock()
		}
	}
}

// Close cancels the polling task. The controller must not be used after.
func (c *Controller) Close() {
	c.poller.Stop()
}
