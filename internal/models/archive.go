package models

import "encoding/json"

// ArchiveEntryStatus is the per-file outcome inside a processed archive.
type ArchiveEntryStatus string

const (
	ArchiveEntryProcessed ArchiveEntryStatus = "processed"
	ArchiveEntryFailed    ArchiveEntryStatus = "failed"
	ArchiveEntrySkipped   ArchiveEntryStatus = "skipped"
)

// ArchiveFileResult is one entry discovered inside an archive.
type ArchiveFileResult struct {
	Path              string             `json:"path"`
	Status            ArchiveEntryStatus `json:"status"`
	TableName         string             `json:"table_name,omitempty"`
	RowsProcessed     int                `json:"rows_processed"`
	DuplicatesSkipped int                `json:"duplicates_skipped"`
	ValidationErrors  int                `json:"validation_errors"`
	FileID            *string            `json:"file_id,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// ArchiveAutoProcessResult aggregates per-file outcomes for one archive run.
// It is either returned synchronously from a kick-off/resume call, or rebuilt
// from a completed job's result metadata. Both paths go through
// NormalizeArchiveResult so callers never care which source produced it.
type ArchiveAutoProcessResult struct {
	JobID          string              `json:"job_id,omitempty"`
	TotalFiles     int                 `json:"total_files"`
	ProcessedFiles int                 `json:"processed_files"`
	FailedFiles    int                 `json:"failed_files"`
	SkippedFiles   int                 `json:"skipped_files"`
	Results        []ArchiveFileResult `json:"results"`
}

// HasPartialFailure reports whether some files processed and some failed.
// The controller suppresses the generic file-level failure banner in this
// case, because the per-file table is the more useful view.
func (r *ArchiveAutoProcessResult) HasPartialFailure() bool {
	return r != nil && r.TotalFiles > 0 && r.FailedFiles > 0 && r.ProcessedFiles > 0
}

// HasTotalFailure reports whether nothing in the archive made it through.
func (r *ArchiveAutoProcessResult) HasTotalFailure() bool {
	return r != nil && r.TotalFiles > 0 && r.ProcessedFiles == 0 && r.FailedFiles > 0
}

// FailedPaths returns the archive paths whose last outcome was failed.
func (r *ArchiveAutoProcessResult) FailedPaths() []string {
	var paths []string
	for _, e := range r.Results {
		if e.Status == ArchiveEntryFailed {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// NormalizeArchiveResult derives consistent aggregate counts from the entry
// list. Counts supplied by the backend win when present (non-zero or matching
// an empty entry list); absent counts default to values derived from entry
// statuses. The input is not mutated.
func NormalizeArchiveResult(in ArchiveAutoProcessResult) ArchiveAutoProcessResult {
	out := in

	var processed, failed, skipped int
	for _, e := range in.Results {
		switch e.Status {
		case ArchiveEntryProcessed:
			processed++
		case ArchiveEntryFailed:
			failed++
		case ArchiveEntrySkipped:
			skipped++
		}
	}

	if out.ProcessedFiles == 0 {
		out.ProcessedFiles = processed
	}
	if out.FailedFiles == 0 {
		out.FailedFiles = failed
	}
	if out.SkippedFiles == 0 {
		out.SkippedFiles = skipped
	}
	if out.TotalFiles == 0 {
		out.TotalFiles = out.ProcessedFiles + out.FailedFiles + out.SkippedFiles
		if len(in.Results) > out.TotalFiles {
			out.TotalFiles = len(in.Results)
		}
	}

	return out
}

// ArchiveResultFromJobMeta rebuilds an archive summary from a terminal job's
// result metadata. Returns false when the metadata carries no archive shape.
func ArchiveResultFromJobMeta(job *ImportJob) (ArchiveAutoProcessResult, bool) {
	if job == nil || len(job.ResultMeta) == 0 {
		return ArchiveAutoProcessResult{}, false
	}

	// The metadata bag is free-form JSON; round-trip it into the typed shape.
	raw, err := json.Marshal(job.ResultMeta)
	if err != nil {
		return ArchiveAutoProcessResult{}, false
	}
	var res ArchiveAutoProcessResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ArchiveAutoProcessResult{}, false
	}
	if res.TotalFiles == 0 && len(res.Results) == 0 {
		return ArchiveAutoProcessResult{}, false
	}

	res.JobID = job.ID
	return NormalizeArchiveResult(res), true
}
