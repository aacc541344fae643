package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStartAndSend(t *testing.T) {
	turn := 0
	backend := &fakeBackend{
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			turn++
			if turn == 1 {
				assert.Empty(t, req.ThreadID)
				assert.Empty(t, req.UserMessage)
				return &client.InteractiveResponse{ThreadID: "t-1", Message: "what table should this go into?"}, nil
			}
			assert.Equal(t, "t-1", req.ThreadID)
			assert.Equal(t, "use the orders table", req.UserMessage)
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "plan ready", CanExecute: true}, nil
		},
	}

	conv := NewConversation(backend, "f-1", nil)
	state, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, "t-1", state.ThreadID)
	assert.False(t, state.CanExecute)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, models.RoleAssistant, state.Messages[0].Role)

	state, err = conv.Send(context.Background(), "use the orders table")
	require.NoError(t, err)
	assert.True(t, state.CanExecute)
	require.Len(t, state.Messages, 3)
	assert.Equal(t, models.RoleUser, state.Messages[1].Role)
	assert.Equal(t, models.RoleAssistant, state.Messages[2].Role)
}

func TestConversationSendWithoutThread(t *testing.T) {
	conv := NewConversation(&fakeBackend{}, "f-1", nil)
	_, err := conv.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoThread)
}

func TestConversationFailedStartLeavesNoThread(t *testing.T) {
	backend := &fakeBackend{
		analyzeInteractive: func(client.InteractiveRequest) (*client.InteractiveResponse, error) {
			return nil, fmt.Errorf("backend unavailable")
		},
	}
	conv := NewConversation(backend, "f-1", nil)

	_, err := conv.Start(context.Background(), StartOptions{})
	require.Error(t, err)
	assert.False(t, conv.Active())

	_, err = conv.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoThread)
}

func TestConversationTurnOrdering(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			if req.ThreadID != "" {
				close(started)
				<-release
			}
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "ok"}, nil
		},
	}

	conv := NewConversation(backend, "f-1", nil)
	_, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	go func() {
		_, _ = conv.Send(context.Background(), "slow turn")
	}()
	<-started

	// Second send while the first is outstanding violates turn ordering.
	_, err = conv.Send(context.Background(), "impatient")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(release)
}

func TestConversationExecuteGate(t *testing.T) {
	backend := &fakeBackend{
		analyzeInteractive: func(client.InteractiveRequest) (*client.InteractiveResponse, error) {
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "still need input", NeedsUserInput: true}, nil
		},
	}
	conv := NewConversation(backend, "f-1", nil)
	_, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	_, err = conv.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCannotExecute)

	for _, call := range backend.callLog() {
		assert.NotEqual(t, "ExecuteInteractive", call)
	}
}

func TestConversationExecuteSuccessClearsThread(t *testing.T) {
	backend := &fakeBackend{
		analyzeInteractive: func(client.InteractiveRequest) (*client.InteractiveResponse, error) {
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "plan ready", CanExecute: true}, nil
		},
		executeInteractive: func(fileID, threadID string) (*client.ExecuteResult, error) {
			return &client.ExecuteResult{Success: true, TableName: "orders", RowsImported: 7}, nil
		},
	}
	conv := NewConversation(backend, "f-1", nil)
	_, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	result, err := conv.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, conv.Active())
}

func TestConversationExecuteFailureKeepsThreadOpen(t *testing.T) {
	newThread := "t-2"
	followUp := "the date column still looks wrong, want me to re-derive it?"
	backend := &fakeBackend{
		analyzeInteractive: func(client.InteractiveRequest) (*client.InteractiveResponse, error) {
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "plan ready", CanExecute: true}, nil
		},
		executeInteractive: func(fileID, threadID string) (*client.ExecuteResult, error) {
			return &client.ExecuteResult{
				Success:     false,
				Message:     "type mismatch in column date",
				NewThreadID: &newThread,
				FollowUp:    &followUp,
			}, nil
		},
	}
	conv := NewConversation(backend, "f-1", nil)
	_, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	result, err := conv.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)

	state := conv.State()
	assert.Equal(t, "t-2", state.ThreadID, "replacement thread id adopted")
	assert.False(t, state.CanExecute, "failed plan is no longer executable")

	last := state.Messages[len(state.Messages)-1]
	assert.Equal(t, followUp, last.Content)

	// A second execute without renegotiation is rejected.
	_, err = conv.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCannotExecute)
}

func TestQuickActionsExpandToPrompts(t *testing.T) {
	var sent []string
	backend := &fakeBackend{
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			if req.UserMessage != "" {
				sent = append(sent, req.UserMessage)
			}
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "ok"}, nil
		},
	}
	conv := NewConversation(backend, "f-1", nil)
	_, err := conv.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	_, err = conv.Quick(context.Background(), QuickConfirmImport)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "CONFIRM IMPORT", sent[0])
}

func TestStartInteractiveSeedsPreviousError(t *testing.T) {
	msg := "column count mismatch"
	failed := &models.UploadedFile{ID: "f-1", Name: "f-1.csv", Status: models.FileStatusFailed, ErrorMessage: &msg}

	var seeded string
	backend := &fakeBackend{
		getFile: func(string) (*models.UploadedFile, error) { return failed, nil },
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			seeded = req.PreviousErrorMessage
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "let me look"}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	state, err := ctrl.StartInteractive(context.Background(), StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, msg, seeded)
	assert.Equal(t, "t-1", state.ThreadID)
	assert.Equal(t, "t-1", ctrl.State().ThreadID)
}

func TestStartInteractiveExplicitErrorWins(t *testing.T) {
	msg := "stale failure"
	failed := &models.UploadedFile{ID: "f-1", Name: "f-1.csv", Status: models.FileStatusFailed, ErrorMessage: &msg}

	var seeded string
	backend := &fakeBackend{
		getFile: func(string) (*models.UploadedFile, error) { return failed, nil },
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			seeded = req.PreviousErrorMessage
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "ok"}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	_, err = ctrl.StartInteractive(context.Background(), StartOptions{PreviousError: "fresher context"})
	require.NoError(t, err)
	assert.Equal(t, "fresher context", seeded)
}
