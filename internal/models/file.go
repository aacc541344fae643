// Package models defines the wire and domain types exchanged with the
// tablemap backend.
package models

import (
	"strings"
	"time"
)

// FileStatus is the lifecycle state of an uploaded file.
type FileStatus string

const (
	FileStatusUploaded FileStatus = "uploaded"
	FileStatusMapping  FileStatus = "mapping"
	FileStatusMapped   FileStatus = "mapped"
	FileStatusFailed   FileStatus = "failed"
)

// ActiveJob is the snapshot of the job currently attached to a file,
// embedded in the file record by the backend.
type ActiveJob struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Progress  *int       `json:"progress,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// UploadedFile is the authoritative file record. The orchestration
// controller re-fetches it after every mutating call instead of trusting
// the call's own response.
type UploadedFile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Size            int64      `json:"size"`
	StoragePath     string     `json:"storage_path,omitempty"`
	Status          FileStatus `json:"status"`
	MappedTableName *string    `json:"mapped_table_name,omitempty"`
	MappedRows      *int       `json:"mapped_rows,omitempty"`
	MappedDate      *time.Time `json:"mapped_date,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	ActiveJob       *ActiveJob `json:"active_job,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsArchive reports whether the file is a ZIP archive of importable files.
func (f *UploadedFile) IsArchive() bool {
	return hasExtFold(f.Name, ".zip")
}

// IsWorkbook reports whether the file is a multi-sheet Excel workbook.
func (f *UploadedFile) IsWorkbook() bool {
	return hasExtFold(f.Name, ".xlsx") || hasExtFold(f.Name, ".xls")
}

// LastError returns the trimmed error message, or "" when none is recorded.
func (f *UploadedFile) LastError() string {
	if f.ErrorMessage == nil {
		return ""
	}
	return strings.TrimSpace(*f.ErrorMessage)
}

func hasExtFold(name, ext string) bool {
	return strings.HasSuffix(strings.ToLower(name), ext)
}
