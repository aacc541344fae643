package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raphaelgruber/tablemap-go/internal/importer"
	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/spf13/cobra"
)

var (
	archiveConflict     string
	archiveTableMode    string
	archiveTableName    string
	archiveSkipDupCheck bool
	archiveInstruction  string
	archiveNoWatch      bool
	resumeFailedOnly    bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <file-id>",
	Short: "Batch-process a ZIP archive or multi-sheet workbook",
	Long: `Submit every supported file inside an archive (or every sheet of a
workbook) for background mapping, then follow the job until it finishes
and show the per-file results.

A partial failure leaves the per-file table as the source of truth:
resume with --failed-only to retry just the failures, or without it to
reprocess everything from scratch.

Examples:
  tablemap archive 9c41d2
  tablemap archive 9c41d2 --table orders --table-mode new
  tablemap archive resume 9c41d2 j-581f --failed-only`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

var archiveResumeCmd = &cobra.Command{
	Use:   "resume <file-id> <job-id>",
	Short: "Re-submit an archive anchored to a prior job",
	Long: `Re-submit an archive using a prior job as a checkpoint.

With --failed-only, only entries whose last outcome was failed are
reprocessed; prior successes are preserved. Without it, every supported
entry is reprocessed regardless of prior status.`,
	Args: cobra.ExactArgs(2),
	RunE: runArchiveResume,
}

func init() {
	for _, c := range []*cobra.Command{archiveCmd, archiveResumeCmd} {
		c.Flags().StringVar(&archiveConflict, "conflict", "", "conflict resolution strategy")
		c.Flags().StringVar(&archiveTableMode, "table-mode", "", "shared table mode: new or existing")
		c.Flags().StringVar(&archiveTableName, "table", "", "map every file into this table")
		c.Flags().BoolVar(&archiveSkipDupCheck, "skip-duplicate-check", false, "do not record duplicate rows")
		c.Flags().StringVar(&archiveInstruction, "instruction", "", "saved instruction name to apply")
		c.Flags().BoolVar(&archiveNoWatch, "no-watch", false, "submit and exit without following the job")
	}
	archiveResumeCmd.Flags().BoolVar(&resumeFailedOnly, "failed-only", false, "retry only previously-failed entries")
	archiveCmd.AddCommand(archiveResumeCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctrl := newController()
	defer ctrl.Close()

	file, err := ctrl.LoadFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if !file.IsArchive() && !file.IsWorkbook() {
		return fmt.Errorf("%s is a single file; use 'tablemap import %s'", file.Name, file.ID)
	}

	opts, err := archiveOptions(ctx)
	if err != nil {
		return err
	}

	resp, err := ctrl.RunBatch(ctx, opts)
	if errors.Is(err, importer.ErrJobActive) {
		return fmt.Errorf("a mapping job is already running for %s", file.Name)
	}
	if err != nil {
		return err
	}

	return finishBatch(ctx, ctrl, resp.JobID)
}

func runArchiveResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctrl := newController()
	defer ctrl.Close()

	file, err := ctrl.LoadFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	opts, err := archiveOptions(ctx)
	if err != nil {
		return err
	}

	resp, err := ctrl.ResumeBatch(ctx, args[1], resumeFailedOnly, opts)
	if errors.Is(err, importer.ErrJobActive) {
		return fmt.Errorf("a mapping job is already running for %s", file.Name)
	}
	if err != nil {
		return err
	}

	return finishBatch(ctx, ctrl, resp.JobID)
}

func archiveOptions(ctx context.Context) (importer.ArchiveOptions, error) {
	instruction, err := resolveInstruction(ctx, archiveInstruction)
	if err != nil {
		return importer.ArchiveOptions{}, err
	}
	return importer.ArchiveOptions{
		ConflictResolution: archiveConflict,
		Target:             sharedTableTarget(archiveTableMode, archiveTableName),
		SkipDuplicateCheck: archiveSkipDupCheck,
		Instruction:        instruction,
	}, nil
}

// finishBatch follows an async job (unless --no-watch) and prints the
// per-file summary once one is available.
func finishBatch(ctx context.Context, ctrl *importer.Controller, jobID string) error {
	state := ctrl.State()

	if jobID == "" {
		// Synchronous fallback: the summary is already in state.
		if state.ArchiveSummary != nil {
			printArchiveSummary(state.ArchiveSummary)
			return exitOnTotalFailure(state.ArchiveSummary)
		}
		return nil
	}

	fmt.Printf("Job %s submitted.\n", jobID)
	if archiveNoWatch {
		fmt.Printf("Use 'tablemap watch %s' to follow it.\n", jobID)
		return nil
	}

	if err := watchJob(ctx, jobID); err != nil {
		return err
	}

	summary, err := ctrl.ArchiveSummary(ctx, jobID)
	if err != nil {
		// The job may not be an archive job, or metadata is missing.
		fmt.Printf("No per-file summary available: %v\n", err)
		return nil
	}
	printArchiveSummary(summary)
	return exitOnTotalFailure(summary)
}

func exitOnTotalFailure(summary *models.ArchiveAutoProcessResult) error {
	if summary.HasTotalFailure() {
		return fmt.Errorf("all %d files failed to process", summary.FailedFiles)
	}
	return nil
}

var (
	archiveHeaderStyle = lipgloss.NewStyle().Bold(true)
	archiveFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF005F"))
	archiveOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787"))
)

// printArchiveSummary renders the per-file result table.
func printArchiveSummary(summary *models.ArchiveAutoProcessResult) {
	fmt.Printf("Archive results: %d processed, %d failed, %d skipped (of %d)\n",
		summary.ProcessedFiles, summary.FailedFiles, summary.SkippedFiles, summary.TotalFiles)

	if len(summary.Results) == 0 {
		return
	}

	t := table.New().
		Headers("FILE", "STATUS", "TABLE", "ROWS", "DUPS", "REJECTED", "ERROR").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return archiveHeaderStyle
			}
			return lipgloss.NewStyle().PaddingRight(1)
		})

	for _, entry := range summary.Results {
		status := string(entry.Status)
		switch entry.Status {
		case models.ArchiveEntryFailed:
			status = archiveFailStyle.Render(status)
		case models.ArchiveEntryProcessed:
			status = archiveOKStyle.Render(status)
		}
		t.Row(entry.Path, status, entry.TableName,
			fmt.Sprintf("%d", entry.RowsProcessed),
			fmt.Sprintf("%d", entry.DuplicatesSkipped),
			fmt.Sprintf("%d", entry.ValidationErrors),
			entry.Error)
	}
	fmt.Println(t)

	if summary.HasPartialFailure() {
		fmt.Printf("\nPartial failure. Retry only the failures with:\n")
		fmt.Printf("  tablemap archive resume <file-id> %s --failed-only\n", summary.JobID)
	}
}
