package importer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// QuickAction is a canned conversation prompt. The vocabulary exists
// purely to reduce typing; each action expands to a normal Send.
type QuickAction string

const (
	QuickConfirmImport    QuickAction = "confirm-import"
	QuickNewTable         QuickAction = "new-table"
	QuickAdjustMapping    QuickAction = "adjust-mapping"
	QuickReviewDuplicates QuickAction = "review-duplicates"
)

var quickActionPrompts = map[QuickAction]string{
	QuickConfirmImport:    "CONFIRM IMPORT",
	QuickNewTable:         "Please create a new table for this data instead of mapping into an existing one.",
	QuickAdjustMapping:    "I'd like to adjust the column mapping before importing.",
	QuickReviewDuplicates: "Show me how duplicate rows will be handled before importing.",
}

// QuickActions lists the supported canned prompts.
func QuickActions() []QuickAction {
	return []QuickAction{QuickConfirmImport, QuickNewTable, QuickAdjustMapping, QuickReviewDuplicates}
}

// StartOptions seed a new interactive negotiation.
type StartOptions struct {
	SheetName string
	// PreviousError carries the file's last failure into the first turn so
	// the assistant does not repeat the same plan on a retry.
	PreviousError string
	Instruction   string
}

// Conversation runs the multi-turn mapping negotiation for one file.
// Turns on a thread are strictly ordered: a second Send is rejected while
// one is outstanding.
type Conversation struct {
	backend Backend
	log     *slog.Logger
	fileID  string

	mu    sync.Mutex
	busy  bool
	state models.ConversationState
}

// NewConversation creates an engine for one file. No thread exists until
// Start succeeds.
func NewConversation(backend Backend, fileID string, log *slog.Logger) *Conversation {
	if log == nil {
		log = slog.Default()
	}
	return &Conversation{backend: backend, fileID: fileID, log: log}
}

// State returns a snapshot of the conversation.
func (cv *Conversation) State() models.ConversationState {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	snapshot := cv.state
	snapshot.Messages = append([]models.Message(nil), cv.state.Messages...)
	return snapshot
}

// Active reports whether a thread exists.
func (cv *Conversation) Active() bool {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.state.ThreadID != ""
}

// Start opens a new thread. Any previous thread's turns are discarded
// first; a failed start is terminal for the attempt and leaves no thread.
func (cv *Conversation) Start(ctx context.Context, opts StartOptions) (*models.ConversationState, error) {
	if err := cv.acquire(); err != nil {
		return nil, err
	}
	defer cv.release()

	cv.mu.Lock()
	cv.state = models.ConversationState{}
	cv.mu.Unlock()

	resp, err := cv.backend.AnalyzeInteractive(ctx, client.InteractiveRequest{
		FileID:               cv.fileID,
		SheetName:            opts.SheetName,
		PreviousErrorMessage: opts.PreviousError,
		Instruction:          opts.Instruction,
	})
	if err != nil {
		return nil, err
	}

	cv.mu.Lock()
	cv.state = models.ConversationState{
		ThreadID:       resp.ThreadID,
		CanExecute:     resp.CanExecute,
		NeedsUserInput: resp.NeedsUserInput,
		Messages: []models.Message{
			{Role: models.RoleAssistant, Content: resp.Message, SentAt: time.Now()},
		},
	}
	snapshot := cv.snapshotLocked()
	cv.mu.Unlock()

	cv.log.Debug("interactive thread started", "file_id", cv.fileID, "thread_id", resp.ThreadID, "can_execute", resp.CanExecute)
	return &snapshot, nil
}

// Send appends a user turn, runs one backend turn on the same thread, and
// appends the assistant's reply. Rejected when no thread exists or a
// prior call is still outstanding.
func (cv *Conversation) Send(ctx context.Context, message string) (*models.ConversationState, error) {
	if err := cv.acquire(); err != nil {
		return nil, err
	}
	defer cv.release()

	cv.mu.Lock()
	threadID := cv.state.ThreadID
	cv.mu.Unlock()
	if threadID == "" {
		return nil, ErrNoThread
	}

	cv.appendMessage(models.RoleUser, message)

	resp, err := cv.backend.AnalyzeInteractive(ctx, client.InteractiveRequest{
		FileID:      cv.fileID,
		UserMessage: message,
		ThreadID:    threadID,
	})
	if err != nil {
		return nil, err
	}

	cv.mu.Lock()
	cv.state.CanExecute = resp.CanExecute
	cv.state.NeedsUserInput = resp.NeedsUserInput
	if resp.ThreadID != "" {
		cv.state.ThreadID = resp.ThreadID
	}
	cv.state.Messages = append(cv.state.Messages, models.Message{
		Role: models.RoleAssistant, Content: resp.Message, SentAt: time.Now(),
	})
	snapshot := cv.snapshotLocked()
	cv.mu.Unlock()

	return &snapshot, nil
}

// Quick expands a canned prompt into a Send. Ignored unless a thread is
// active and the engine is idle.
func (cv *Conversation) Quick(ctx context.Context, action QuickAction) (*models.ConversationState, error) {
	prompt, ok := quickActionPrompts[action]
	if !ok {
		return nil, ErrNoThread
	}
	return cv.Send(ctx, prompt)
}

// Execute runs the negotiated plan. Valid only when the assistant has
// flagged a concrete plan. On success the thread is cleared; on failure
// the failure message and any assistant follow-up are appended and the
// thread stays open, adopting a replacement thread id when supplied.
func (cv *Conversation) Execute(ctx context.Context) (*client.ExecuteResult, error) {
	if err := cv.acquire(); err != nil {
		return nil, err
	}
	defer cv.release()

	cv.mu.Lock()
	threadID := cv.state.ThreadID
	canExecute := cv.state.CanExecute
	cv.mu.Unlock()

	if threadID == "" {
		return nil, ErrNoThread
	}
	if !canExecute {
		return nil, ErrCannotExecute
	}

	result, err := cv.backend.ExecuteInteractive(ctx, cv.fileID, threadID)
	if err != nil {
		return nil, err
	}

	if result.Success {
		cv.mu.Lock()
		cv.state = models.ConversationState{}
		cv.mu.Unlock()
		cv.log.Info("interactive import executed", "file_id", cv.fileID, "table", result.TableName, "rows", result.RowsImported)
		return result, nil
	}

	cv.mu.Lock()
	if result.Message != "" {
		cv.state.Messages = append(cv.state.Messages, models.Message{
			Role: models.RoleAssistant, Content: result.Message, SentAt: time.Now(),
		})
	}
	if result.FollowUp != nil && *result.FollowUp != "" {
		cv.state.Messages = append(cv.state.Messages, models.Message{
			Role: models.RoleAssistant, Content: *result.FollowUp, SentAt: time.Now(),
		})
	}
	if result.NewThreadID != nil && *result.NewThreadID != "" {
		cv.state.ThreadID = *result.NewThreadID
	}
	cv.state.CanExecute = false
	cv.mu.Unlock()

	cv.log.Warn("interactive execute failed", "file_id", cv.fileID, "thread_id", threadID, "message", result.Message)
	return result, nil
}

func (cv *Conversation) acquire() error {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	if cv.busy {
		return ErrTurnInFlight
	}
	cv.busy = true
	return nil
}

func (cv *Conversation) release() {
	cv.mu.Lock()
	cv.busy = false
	cv.mu.Unlock()
}

func (cv *Conversation) appendMessage(role, content string) {
	cv.mu.Lock()
	cv.state.Messages = append(cv.state.Messages, models.Message{
		Role: role, Content: content, SentAt: time.Now(),
	})
	cv.mu.Unlock()
}

// snapshotLocked copies the state. Caller holds cv.mu.
func (cv *Conversation) snapshotLocked() models.ConversationState {
	snapshot := cv.state
	snapshot.Messages = append([]models.Message(nil), cv.state.Messages...)
	return snapshot
}

// ---- controller glue ----

// StartInteractive opens a negotiation thread for the loaded file. When
// the file is in failed status and no explicit previous error is given,
// the file's last recorded error seeds the first turn.
func (c *Controller) StartInteractive(ctx context.Context, opts StartOptions) (*models.ConversationState, error) {
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()

	c.mu.Lock()
	file := c.state.File
	fileID := c.state.FileID
	c.mu.Unlock()

	if opts.PreviousError == "" && file != nil && file.Status == models.FileStatusFailed {
		opts.PreviousError = file.LastError()
	}

	conv := NewConversation(c.backend, fileID, c.log)
	state, err := conv.Start(ctx, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.conv = conv
	c.state.ThreadID = state.ThreadID
	c.mu.Unlock()
	return state, nil
}

// Conversation returns the active negotiation engine, or nil.
func (c *Controller) Conversation() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

// SendMessage runs one user turn on the active thread.
func (c *Controller) SendMessage(ctx context.Context, message string) (*models.ConversationState, error) {
	conv := c.Conversation()
	if conv == nil {
		return nil, ErrNoThread
	}
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()
	return conv.Send(ctx, message)
}

// ExecuteThread executes the negotiated plan and, on success, re-fetches
// the file and discards the conversation.
func (c *Controller) ExecuteThread(ctx context.Context) (*client.ExecuteResult, error) {
	conv := c.Conversation()
	if conv == nil {
		return nil, ErrNoThread
	}
	if err := c.beginMutation(); err != nil {
		return nil, err
	}
	defer c.endMutation()

	result, err := conv.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if result.Success {
		c.mu.Lock()
		c.conv = nil
		c.state.ThreadID = ""
		c.mu.Unlock()

		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			c.log.Warn("post-execute refresh failed", "error", refreshErr)
		}
		c.loadPostImportDetails(ctx)
	} else {
		c.mu.Lock()
		c.state.ThreadID = conv.State().ThreadID
		c.mu.Unlock()
	}

	return result, nil
}
