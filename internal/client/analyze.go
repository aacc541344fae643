package client

import (
	"context"
	"fmt"
	"strconv"
)

// SharedTableTarget pins the mapping to one specific table instead of
// letting the backend pick or create one per file.
type SharedTableTarget struct {
	// Mode is "new" or "existing".
	Mode      string `json:"mode"`
	TableName string `json:"table_name"`
}

// AnalyzeFileRequest drives one synchronous automatic mapping attempt.
type AnalyzeFileRequest struct {
	FileID             string
	AnalysisMode       string
	ConflictResolution string
	MaxIterations      int
	Target             *SharedTableTarget
	SkipDuplicateCheck bool
	Instruction        string
}

// AnalyzeFileResult is the outcome of an automatic mapping attempt.
type AnalyzeFileResult struct {
	Success        bool    `json:"success"`
	TableName      string  `json:"table_name,omitempty"`
	RowsImported   int     `json:"rows_imported,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// AnalyzeFile runs one synchronous automatic mapping attempt.
func (c *Client) AnalyzeFile(ctx context.Context, req AnalyzeFileRequest) (*AnalyzeFileResult, error) {
	fields := map[string]string{
		"file_id":       req.FileID,
		"analysis_mode": req.AnalysisMode,
	}
	if req.ConflictResolution != "" {
		fields["conflict_resolution"] = req.ConflictResolution
	}
	if req.MaxIterations > 0 {
		fields["max_iterations"] = strconv.Itoa(req.MaxIterations)
	}
	if req.SkipDuplicateCheck {
		fields["skip_duplicate_check"] = "true"
	}
	if req.Instruction != "" {
		fields["instruction"] = req.Instruction
	}
	addTargetFields(fields, req.Target)

	var result AnalyzeFileResult
	if err := c.postForm(ctx, "/analyze-file", fields, &result); err != nil {
		return nil, fmt.Errorf("analyze file: %w", err)
	}
	return &result, nil
}

// InteractiveRequest is one conversational turn with the mapping assistant.
// ThreadID is empty on the first turn; the backend assigns one.
type InteractiveRequest struct {
	FileID               string `json:"file_id"`
	UserMessage          string `json:"user_message,omitempty"`
	ThreadID             string `json:"thread_id,omitempty"`
	SheetName            string `json:"sheet_name,omitempty"`
	PreviousErrorMessage string `json:"previous_error_message,omitempty"`
	Instruction          string `json:"instruction,omitempty"`
}

// InteractiveResponse carries the assistant turn plus the two derived flags.
type InteractiveResponse struct {
	ThreadID       string `json:"thread_id"`
	Message        string `json:"message"`
	CanExecute     bool   `json:"can_execute"`
	NeedsUserInput bool   `json:"needs_user_input"`
}

// AnalyzeInteractive runs one turn of the interactive negotiation.
func (c *Client) AnalyzeInteractive(ctx context.Context, req InteractiveRequest) (*InteractiveResponse, error) {
	var resp InteractiveResponse
	if err := c.postJSON(ctx, "/analyze-file-interactive", req, &resp); err != nil {
		return nil, fmt.Errorf("interactive analyze: %w", err)
	}
	return &resp, nil
}

// ExecuteResult is the outcome of executing a negotiated mapping plan.
// On failure the backend may hand back a replacement thread id plus an
// assistant follow-up so the negotiation can continue.
type ExecuteResult struct {
	Success        bool    `json:"success"`
	TableName      string  `json:"table_name,omitempty"`
	RowsImported   int     `json:"rows_imported,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Message        string  `json:"message,omitempty"`
	NewThreadID    *string `json:"new_thread_id,omitempty"`
	FollowUp       *string `json:"follow_up,omitempty"`
}

// ExecuteInteractive executes the plan negotiated on a thread.
func (c *Client) ExecuteInteractive(ctx context.Context, fileID, threadID string) (*ExecuteResult, error) {
	req := map[string]string{
		"file_id":   fileID,
		"thread_id": threadID,
	}
	var result ExecuteResult
	if err := c.postJSON(ctx, "/execute-interactive-import", req, &result); err != nil {
		return nil, fmt.Errorf("execute interactive import: %w", err)
	}
	return &result, nil
}

func addTargetFields(fields map[string]string, target *SharedTableTarget) {
	if target == nil {
		return
	}
	fields["target_mode"] = target.Mode
	fields["target_table_name"] = target.TableName
}
