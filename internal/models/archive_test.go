package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArchiveResult(t *testing.T) {
	tests := []struct {
		name string
		in   ArchiveAutoProcessResult
		want ArchiveAutoProcessResult
	}{
		{
			name: "counts derived from entries when absent",
			in: ArchiveAutoProcessResult{
				Results: []ArchiveFileResult{
					{Path: "a.csv", Status: ArchiveEntryProcessed},
					{Path: "b.csv", Status: ArchiveEntryFailed},
					{Path: "c.txt", Status: ArchiveEntrySkipped},
				},
			},
			want: ArchiveAutoProcessResult{
				TotalFiles:     3,
				ProcessedFiles: 1,
				FailedFiles:    1,
				SkippedFiles:   1,
			},
		},
		{
			name: "backend counts win when present",
			in: ArchiveAutoProcessResult{
				TotalFiles:     5,
				ProcessedFiles: 4,
				FailedFiles:    1,
				Results: []ArchiveFileResult{
					{Path: "a.csv", Status: ArchiveEntryProcessed},
				},
			},
			want: ArchiveAutoProcessResult{
				TotalFiles:     5,
				ProcessedFiles: 4,
				FailedFiles:    1,
			},
		},
		{
			name: "empty input stays empty",
			in:   ArchiveAutoProcessResult{},
			want: ArchiveAutoProcessResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeArchiveResult(tt.in)
			assert.Equal(t, tt.want.TotalFiles, got.TotalFiles)
			assert.Equal(t, tt.want.ProcessedFiles, got.ProcessedFiles)
			assert.Equal(t, tt.want.FailedFiles, got.FailedFiles)
			assert.Equal(t, tt.want.SkippedFiles, got.SkippedFiles)
		})
	}
}

func TestArchiveFailureClassification(t *testing.T) {
	partial := &ArchiveAutoProcessResult{TotalFiles: 3, ProcessedFiles: 2, FailedFiles: 1}
	assert.True(t, partial.HasPartialFailure())
	assert.False(t, partial.HasTotalFailure())

	total := &ArchiveAutoProcessResult{TotalFiles: 3, ProcessedFiles: 0, FailedFiles: 3}
	assert.False(t, total.HasPartialFailure())
	assert.True(t, total.HasTotalFailure())

	clean := &ArchiveAutoProcessResult{TotalFiles: 3, ProcessedFiles: 3}
	assert.False(t, clean.HasPartialFailure())
	assert.False(t, clean.HasTotalFailure())

	var nilSummary *ArchiveAutoProcessResult
	assert.False(t, nilSummary.HasPartialFailure())
	assert.False(t, nilSummary.HasTotalFailure())
}

func TestFailedPaths(t *testing.T) {
	summary := &ArchiveAutoProcessResult{
		Results: []ArchiveFileResult{
			{Path: "a.csv", Status: ArchiveEntryProcessed},
			{Path: "b.csv", Status: ArchiveEntryFailed},
			{Path: "c.csv", Status: ArchiveEntryFailed},
		},
	}
	assert.Equal(t, []string{"b.csv", "c.csv"}, summary.FailedPaths())
}

func TestArchiveResultFromJobMeta(t *testing.T) {
	job := &ImportJob{
		ID:     "j-1",
		Status: JobStatusSucceeded,
		ResultMeta: map[string]any{
			"total_files": float64(2),
			"results": []any{
				map[string]any{"path": "a.csv", "status": "processed", "rows_processed": float64(10)},
				map[string]any{"path": "b.csv", "status": "failed", "error": "bad header"},
			},
		},
	}

	summary, ok := ArchiveResultFromJobMeta(job)
	require.True(t, ok)
	assert.Equal(t, "j-1", summary.JobID)
	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, 1, summary.ProcessedFiles)
	assert.Equal(t, 1, summary.FailedFiles)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 10, summary.Results[0].RowsProcessed)
	assert.Equal(t, "bad header", summary.Results[1].Error)
}

func TestArchiveResultFromJobMeta_NotAnArchiveJob(t *testing.T) {
	_, ok := ArchiveResultFromJobMeta(nil)
	assert.False(t, ok)

	_, ok = ArchiveResultFromJobMeta(&ImportJob{ID: "j-2", Status: JobStatusSucceeded})
	assert.False(t, ok)

	// Single-file result metadata has no archive shape.
	_, ok = ArchiveResultFromJobMeta(&ImportJob{
		ID:         "j-3",
		Status:     JobStatusSucceeded,
		ResultMeta: map[string]any{"table_name": "orders", "rows_imported": float64(50)},
	})
	assert.False(t, ok)
}
