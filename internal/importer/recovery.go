package importer

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/tablemap-go/internal/client"
)

// Recovery outcome reasons.
const (
	// ReasonNoPlan: the assistant produced no executable plan.
	ReasonNoPlan = "no_plan"
	// ReasonExecuteFailed: a plan was produced but executing it failed.
	ReasonExecuteFailed = "execute_failed"
	// ReasonEscalationError: the escalation call itself raised an error.
	ReasonEscalationError = "escalation_error"
)

// RecoveryRequest seeds an escalation with the failure context.
type RecoveryRequest struct {
	FileID      string
	FailureMsg  string
	SheetName   string
	Instruction string
}

// RecoveryOutcome reports a single escalation attempt. Each non-recovered
// reason yields a distinct user-facing message.
type RecoveryOutcome struct {
	Recovered bool
	Reason    string
	// Detail carries the assistant reply or the execution/escalation error.
	Detail       string
	TableName    string
	RowsImported int
}

// Message renders the user-facing summary of the outcome.
func (o RecoveryOutcome) Message() string {
	switch {
	case o.Recovered:
		return "automatic recovery imported the file after adjusting the mapping"
	case o.Reason == ReasonNoPlan:
		return "the assistant could not derive a working mapping plan"
	case o.Reason == ReasonExecuteFailed:
		return "the assistant proposed a repaired mapping but executing it failed"
	default:
		return "automatic recovery could not be attempted"
	}
}

// Escalator escalates an automatic-mode failure to the conversational
// engine exactly once: it starts an interactive analysis seeded with the
// failure message and, if an executable plan comes back, executes it
// without further user input.
type Escalator struct {
	backend Backend
	log     *slog.Logger
}

// NewEscalator creates a recovery escalator.
func NewEscalator(backend Backend, log *slog.Logger) *Escalator {
	if log == nil {
		log = slog.Default()
	}
	return &Escalator{backend: backend, log: log}
}

// Recover runs the single escalation attempt. It never returns an error;
// any outcome other than full success falls through to the original
// failure being reported, annotated with this result.
func (e *Escalator) Recover(ctx context.Context, req RecoveryRequest) RecoveryOutcome {
	e.log.Info("escalating failed automatic mapping to assistant", "file_id", req.FileID)

	resp, err := e.backend.AnalyzeInteractive(ctx, client.InteractiveRequest{
		FileID:               req.FileID,
		SheetName:            req.SheetName,
		PreviousErrorMessage: req.FailureMsg,
		Instruction:          req.Instruction,
	})
	if err != nil {
		e.log.Warn("recovery escalation errored", "file_id", req.FileID, "error", err)
		return RecoveryOutcome{Reason: ReasonEscalationError, Detail: err.Error()}
	}

	if !resp.CanExecute {
		e.log.Info("recovery produced no executable plan", "file_id", req.FileID, "thread_id", resp.ThreadID)
		return RecoveryOutcome{Reason: ReasonNoPlan, Detail: resp.Message}
	}

	result, err := e.backend.ExecuteInteractive(ctx, req.FileID, resp.ThreadID)
	if err != nil {
		e.log.Warn("recovery execution errored", "file_id", req.FileID, "error", err)
		return RecoveryOutcome{Reason: ReasonExecuteFailed, Detail: err.Error()}
	}
	if !result.Success {
		e.log.Warn("recovery execution failed", "file_id", req.FileID, "message", result.Message)
		return RecoveryOutcome{Reason: ReasonExecuteFailed, Detail: result.Message}
	}

	e.log.Info("recovery succeeded", "file_id", req.FileID, "table", result.TableName, "rows", result.RowsImported)
	return RecoveryOutcome{
		Recovered:    true,
		TableName:    result.TableName,
		RowsImported: result.RowsImported,
	}
}
