package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// fakeBackend implements Backend with per-call hooks and a call log.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	getFile            func(id string) (*models.UploadedFile, error)
	getJob             func(id string) (*models.ImportJob, error)
	latestJob          func(fileID string) (*models.ImportJob, error)
	analyzeFile        func(req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error)
	analyzeInteractive func(req client.InteractiveRequest) (*client.InteractiveResponse, error)
	executeInteractive func(fileID, threadID string) (*client.ExecuteResult, error)
	autoProcess        func(path string, req client.AutoProcessRequest) (*client.AutoProcessResponse, error)
	resumeArchive      func(req client.AutoProcessRequest, fromJobID string, retryFailedOnly bool) (*client.AutoProcessResponse, error)
	listHistory        func(fileID string, limit int) ([]client.ImportRecord, error)
	listDuplicates     func(importID string) ([]models.DuplicateRow, error)
	listValidation     func(importID string) ([]models.ValidationFailureRow, error)
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) GetFile(_ context.Context, id string) (*models.UploadedFile, error) {
	f.record("GetFile")
	if f.getFile == nil {
		return &models.UploadedFile{ID: id, Name: id + ".csv", Status: models.FileStatusUploaded}, nil
	}
	return f.getFile(id)
}

func (f *fakeBackend) GetJob(_ context.Context, id string) (*models.ImportJob, error) {
	f.record("GetJob")
	if f.getJob == nil {
		return nil, fmt.Errorf("no job %s", id)
	}
	return f.getJob(id)
}

func (f *fakeBackend) LatestJob(_ context.Context, fileID string) (*models.ImportJob, error) {
	f.record("LatestJob")
	if f.latestJob == nil {
		return nil, nil
	}
	return f.latestJob(fileID)
}

func (f *fakeBackend) AnalyzeFile(_ context.Context, req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error) {
	f.record("AnalyzeFile")
	if f.analyzeFile == nil {
		return &client.AnalyzeFileResult{Success: true}, nil
	}
	return f.analyzeFile(req)
}

func (f *fakeBackend) AnalyzeInteractive(_ context.Context, req client.InteractiveRequest) (*client.InteractiveResponse, error) {
	f.record("AnalyzeInteractive")
	if f.analyzeInteractive == nil {
		return &client.InteractiveResponse{ThreadID: "t-1", Message: "hello"}, nil
	}
	return f.analyzeInteractive(req)
}

func (f *fakeBackend) ExecuteInteractive(_ context.Context, fileID, threadID string) (*client.ExecuteResult, error) {
	f.record("ExecuteInteractive")
	if f.executeInteractive == nil {
		return &client.ExecuteResult{Success: true}, nil
	}
	return f.executeInteractive(fileID, threadID)
}

func (f *fakeBackend) AutoProcessWorkbook(_ context.Context, req client.AutoProcessRequest) (*client.AutoProcessResponse, error) {
	f.record("AutoProcessWorkbook")
	if f.autoProcess == nil {
		return &client.AutoProcessResponse{JobID: "j-1"}, nil
	}
	return f.autoProcess("workbook", req)
}

func (f *fakeBackend) AutoProcessArchive(_ context.Context, req client.AutoProcessRequest) (*client.AutoProcessResponse, error) {
	f.record("AutoProcessArchive")
	if f.autoProcess == nil {
		return &client.AutoProcessResponse{JobID: "j-1"}, nil
	}
	return f.autoProcess("archive", req)
}

func (f *fakeBackend) ResumeArchive(_ context.Context, req client.AutoProcessRequest, fromJobID string, retryFailedOnly bool) (*client.AutoProcessResponse, error) {
	f.record("ResumeArchive")
	if f.resumeArchive == nil {
		return &client.AutoProcessResponse{JobID: "j-2"}, nil
	}
	return f.resumeArchive(req, fromJobID, retryFailedOnly)
}

func (f *fakeBackend) ListImportHistory(_ context.Context, fileID string, limit int) ([]client.ImportRecord, error) {
	f.record("ListImportHistory")
	if f.listHistory == nil {
		return nil, nil
	}
	return f.listHistory(fileID, limit)
}

func (f *fakeBackend) ListDuplicates(_ context.Context, importID string) ([]models.DuplicateRow, error) {
	f.record("ListDuplicates")
	if f.listDuplicates == nil {
		return nil, nil
	}
	return f.listDuplicates(importID)
}

func (f *fakeBackend) ListValidationFailures(_ context.Context, importID string) ([]models.ValidationFailureRow, error) {
	f.record("ListValidationFailures")
	if f.listValidation == nil {
		return nil, nil
	}
	return f.listValidation(importID)
}

var _ Backend = (*fakeBackend)(nil)
