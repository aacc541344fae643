package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileKindDetection(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		archive  bool
		workbook bool
	}{
		{name: "zip archive", file: "exports.zip", archive: true},
		{name: "uppercase extension", file: "EXPORTS.ZIP", archive: true},
		{name: "xlsx workbook", file: "orders.xlsx", workbook: true},
		{name: "legacy xls workbook", file: "orders.xls", workbook: true},
		{name: "plain csv", file: "orders.csv"},
		{name: "zip in the middle of the name", file: "zipcodes.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &UploadedFile{Name: tt.file}
			assert.Equal(t, tt.archive, f.IsArchive())
			assert.Equal(t, tt.workbook, f.IsWorkbook())
		})
	}
}

func TestLastError(t *testing.T) {
	f := &UploadedFile{}
	assert.Equal(t, "", f.LastError())

	msg := "  header row not found \n"
	f.ErrorMessage = &msg
	assert.Equal(t, "header row not found", f.LastError())
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobStatusQueued.Active())
	assert.True(t, JobStatusRunning.Active())
	assert.False(t, JobStatusSucceeded.Active())

	assert.True(t, JobStatusSucceeded.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
}
