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

func uploadedFile(id string, status models.FileStatus) *models.UploadedFile {
	return &models.UploadedFile{ID: id, Name: id + ".csv", Status: status}
}

func TestDefaultFlow(t *testing.T) {
	tests := []struct {
		name string
		file *models.UploadedFile
		want Flow
	}{
		{name: "fresh upload", file: uploadedFile("f-1", models.FileStatusUploaded), want: FlowAuto},
		{name: "failed file retries interactively", file: uploadedFile("f-1", models.FileStatusFailed), want: FlowInteractive},
		{name: "zip archive", file: &models.UploadedFile{ID: "f-1", Name: "batch.zip", Status: models.FileStatusUploaded}, want: FlowArchive},
		{name: "failed archive still batches", file: &models.UploadedFile{ID: "f-1", Name: "batch.zip", Status: models.FileStatusFailed}, want: FlowArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{getFile: func(string) (*models.UploadedFile, error) { return tt.file, nil }}
			ctrl := NewController(backend)
			defer ctrl.Close()

			_, err := ctrl.LoadFile(context.Background(), "f-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ctrl.DefaultFlow())
		})
	}
}

func TestAdmissionGate(t *testing.T) {
	tests := []struct {
		name    string
		file    *models.UploadedFile
		wantErr error
	}{
		{
			name: "idle file admits",
			file: uploadedFile("f-1", models.FileStatusUploaded),
		},
		{
			name: "active job refuses",
			file: &models.UploadedFile{
				ID: "f-1", Name: "f-1.csv", Status: models.FileStatusMapping,
				ActiveJob: &models.ActiveJob{ID: "j-1", Status: models.JobStatusRunning},
			},
			wantErr: ErrJobActive,
		},
		{
			name: "failed status licenses a retry despite stale job bookkeeping",
			file: &models.UploadedFile{
				ID: "f-1", Name: "f-1.csv", Status: models.FileStatusFailed,
				ActiveJob: &models.ActiveJob{ID: "j-1", Status: models.JobStatusRunning},
			},
		},
		{
			name: "terminal job snapshot admits",
			file: &models.UploadedFile{
				ID: "f-1", Name: "f-1.csv", Status: models.FileStatusMapped,
				ActiveJob: &models.ActiveJob{ID: "j-1", Status: models.JobStatusSucceeded},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{getFile: func(string) (*models.UploadedFile, error) { return tt.file, nil }}
			ctrl := NewController(backend, WithPollInterval(time.Hour))
			defer ctrl.Close()

			_, err := ctrl.LoadFile(context.Background(), "f-1")
			require.NoError(t, err)

			err = ctrl.EnsureJobAvailable()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureJobAvailableWithoutFile(t *testing.T) {
	ctrl := NewController(&fakeBackend{})
	defer ctrl.Close()
	assert.ErrorIs(t, ctrl.EnsureJobAvailable(), ErrNoFile)
}

func TestRunAutoSuccessRefreshesFile(t *testing.T) {
	fetches := 0
	backend := &fakeBackend{
		getFile: func(id string) (*models.UploadedFile, error) {
			fetches++
			if fetches == 1 {
				return uploadedFile(id, models.FileStatusUploaded), nil
			}
			// The mutating call's own response is never trusted; the
			// re-fetch is what carries the authoritative outcome.
			table := "orders"
			return &models.UploadedFile{ID: id, Name: id + ".csv", Status: models.FileStatusMapped, MappedTableName: &table}, nil
		},
		analyzeFile: func(req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error) {
			return &client.AnalyzeFileResult{Success: true, TableName: "orders", RowsImported: 10}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	outcome, err := ctrl.RunAuto(context.Background(), AutoOptions{})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Success)
	assert.Nil(t, outcome.Recovery)

	assert.GreaterOrEqual(t, fetches, 2)
	assert.Equal(t, models.FileStatusMapped, ctrl.State().File.Status)
}

func TestRunAutoRejectedWhileJobActive(t *testing.T) {
	file := &models.UploadedFile{
		ID: "f-1", Name: "f-1.csv", Status: models.FileStatusMapping,
		ActiveJob: &models.ActiveJob{ID: "j-1", Status: models.JobStatusRunning},
	}
	backend := &fakeBackend{
		getFile: func(string) (*models.UploadedFile, error) { return file, nil },
		getJob: func(id string) (*models.ImportJob, error) {
			return &models.ImportJob{ID: id, Status: models.JobStatusRunning}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	_, err = ctrl.RunAuto(context.Background(), AutoOptions{})
	assert.ErrorIs(t, err, ErrJobActive)

	for _, call := range backend.callLog() {
		assert.NotEqual(t, "AnalyzeFile", call, "rejected run must not reach the backend")
	}
}

func TestRunAutoFailureEscalatesOnce(t *testing.T) {
	backend := &fakeBackend{
		getFile: func(id string) (*models.UploadedFile, error) {
			return uploadedFile(id, models.FileStatusUploaded), nil
		},
		analyzeFile: func(req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error) {
			return &client.AnalyzeFileResult{Success: false, Error: "ambiguous headers"}, nil
		},
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			// The original failure must seed the escalation turn.
			assert.Equal(t, "ambiguous headers", req.PreviousErrorMessage)
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "try splitting the header row", CanExecute: false}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	outcome, err := ctrl.RunAuto(context.Background(), AutoOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecoveryExhausted)
	require.NotNil(t, outcome.Recovery)
	assert.Equal(t, ReasonNoPlan, outcome.Recovery.Reason)

	// No plan means the escalation never reaches execution.
	for _, call := range backend.callLog() {
		assert.NotEqual(t, "ExecuteInteractive", call)
	}
}

func TestRunAutoRecoverySucceeds(t *testing.T) {
	backend := &fakeBackend{
		getFile: func(id string) (*models.UploadedFile, error) {
			return uploadedFile(id, models.FileStatusUploaded), nil
		},
		analyzeFile: func(req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error) {
			return nil, fmt.Errorf("analysis timed out")
		},
		analyzeInteractive: func(req client.InteractiveRequest) (*client.InteractiveResponse, error) {
			return &client.InteractiveResponse{ThreadID: "t-1", Message: "plan ready", CanExecute: true}, nil
		},
		executeInteractive: func(fileID, threadID string) (*client.ExecuteResult, error) {
			assert.Equal(t, "t-1", threadID)
			return &client.ExecuteResult{Success: true, TableName: "orders", RowsImported: 42}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	outcome, err := ctrl.RunAuto(context.Background(), AutoOptions{})
	require.NoError(t, err)
	require.NotNil(t, outcome.Recovery)
	assert.True(t, outcome.Recovery.Recovered)
	assert.Equal(t, "orders", outcome.Recovery.TableName)
	assert.Equal(t, 42, outcome.Recovery.RowsImported)
}

func TestRunAutoNoRecoveryFlag(t *testing.T) {
	backend := &fakeBackend{
		getFile: func(id string) (*models.UploadedFile, error) {
			return uploadedFile(id, models.FileStatusUploaded), nil
		},
		analyzeFile: func(req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error) {
			return &client.AnalyzeFileResult{Success: false, Error: "nope"}, nil
		},
	}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	outcome, err := ctrl.RunAuto(context.Background(), AutoOptions{DisableRecovery: true})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecoveryExhausted)
	assert.Nil(t, outcome.Recovery)

	for _, call := range backend.callLog() {
		assert.NotEqual(t, "AnalyzeInteractive", call)
	}
}

func TestFailureBannerSuppressedOnPartialArchiveFailure(t *testing.T) {
	msg := "2 of 5 files failed"
	failed := &models.UploadedFile{ID: "f-1", Name: "batch.zip", Status: models.FileStatusFailed, ErrorMessage: &msg}
	backend := &fakeBackend{getFile: func(string) (*models.UploadedFile, error) { return failed, nil }}
	ctrl := NewController(backend, WithPollInterval(time.Hour))
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, msg, ctrl.FailureBanner())

	ctrl.mu.Lock()
	ctrl.state.ArchiveSummary = &models.ArchiveAutoProcessResult{TotalFiles: 5, ProcessedFiles: 3, FailedFiles: 2}
	ctrl.mu.Unlock()
	assert.Equal(t, "", ctrl.FailureBanner())

	// Total failure keeps the banner: the generic message is all there is.
	ctrl.mu.Lock()
	ctrl.state.ArchiveSummary = &models.ArchiveAutoProcessResult{TotalFiles: 5, FailedFiles: 5}
	ctrl.mu.Unlock()
	assert.Equal(t, msg, ctrl.FailureBanner())
}

func TestJobDoneHookRefreshesAndRebuildsArchiveSummary(t *testing.T) {
	statusNow := models.FileStatusMapping
	backend := &fakeBackend{
		getFile: func(id string) (*models.UploadedFile, error) {
			return &models.UploadedFile{ID: id, Name: "batch.zip", Status: statusNow}, nil
		},
	}

	done := make(chan struct{})
	ctrl := NewController(backend,
		WithPollInterval(time.Hour),
		WithJobDoneHook(func(*models.ImportJob) { close(done) }),
	)
	defer ctrl.Close()

	_, err := ctrl.LoadFile(context.Background(), "f-1")
	require.NoError(t, err)

	statusNow = models.FileStatusMapped
	ctrl.handleJobDone(context.Background(), &models.ImportJob{
		ID:     "j-1",
		Status: models.JobStatusSucceeded,
		ResultMeta: map[string]any{
			"results": []any{
				map[string]any{"path": "a.csv", "status": "processed"},
			},
		},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job-done hook never fired")
	}

	state := ctrl.State()
	assert.Equal(t, models.FileStatusMapped, state.File.Status)
	require.NotNil(t, state.ArchiveSummary)
	assert.Equal(t, 1, state.ArchiveSummary.ProcessedFiles)
	assert.Nil(t, state.ActiveJob)
}
