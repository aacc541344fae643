// Package importer implements the client-side orchestration that drives an
// uploaded file through mapping analysis, execution and reconciliation
// against the tablemap backend.
package importer

import (
	"context"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// Backend is the slice of the REST client the orchestration layer needs.
// *client.Client satisfies it; tests substitute fakes.
type Backend interface {
	GetFile(ctx context.Context, id string) (*models.UploadedFile, error)
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
	LatestJob(ctx context.Context, fileID string) (*models.ImportJob, error)

	AnalyzeFile(ctx context.Context, req client.AnalyzeFileRequest) (*client.AnalyzeFileResult, error)
	AnalyzeInteractive(ctx context.Context, req client.InteractiveRequest) (*client.InteractiveResponse, error)
	ExecuteInteractive(ctx context.Context, fileID, threadID string) (*client.ExecuteResult, error)

	AutoProcessWorkbook(ctx context.Context, req client.AutoProcessRequest) (*client.AutoProcessResponse, error)
	AutoProcessArchive(ctx context.Context, req client.AutoProcessRequest) (*client.AutoProcessResponse, error)
	ResumeArchive(ctx context.Context, req client.AutoProcessRequest, fromJobID string, retryFailedOnly bool) (*client.AutoProcessResponse, error)

	ListImportHistory(ctx context.Context, fileID string, limit int) ([]client.ImportRecord, error)
	ListDuplicates(ctx context.Context, importID string) ([]models.DuplicateRow, error)
	ListValidationFailures(ctx context.Context, importID string) ([]models.ValidationFailureRow, error)
}
