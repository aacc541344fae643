package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <file-id>",
	Short: "Show an uploaded file and its mapping state",
	Long: `Show the authoritative state of an uploaded file: lifecycle status,
the active mapping job if one is running, the last error, and recent
import history.

Examples:
  tablemap status 7f3a91
  tablemap status 7f3a91 -v`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctrl := newController()
	defer ctrl.Close()

	file, err := ctrl.LoadFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	fmt.Printf("File: %s (%s)\n", file.Name, file.ID)
	fmt.Printf("  Size: %d bytes\n", file.Size)
	fmt.Printf("  Status: %s\n", file.Status)
	fmt.Printf("  Suggested flow: %s\n", ctrl.DefaultFlow())

	if file.Status == models.FileStatusMapped {
		if file.MappedTableName != nil {
			fmt.Printf("  Table: %s\n", *file.MappedTableName)
		}
		if file.MappedRows != nil {
			fmt.Printf("  Rows: %d\n", *file.MappedRows)
		}
		if file.MappedDate != nil {
			fmt.Printf("  Mapped: %s\n", file.MappedDate.Format(time.RFC3339))
		}
	}

	if job := file.ActiveJob; job != nil && job.Status.Active() {
		fmt.Printf("\nActive job: %s\n", job.ID)
		fmt.Printf("  Status: %s\n", job.Status)
		if job.Stage != "" {
			fmt.Printf("  Stage: %s\n", job.Stage)
		}
		if job.Progress != nil {
			fmt.Printf("  Progress: %d%%\n", *job.Progress)
		}
		fmt.Printf("\nUse 'tablemap watch %s' to follow it.\n", job.ID)
	}

	if banner := ctrl.FailureBanner(); banner != "" {
		fmt.Printf("\nLast error: %s\n", banner)
		fmt.Println("Use 'tablemap chat' to retry with the assistant, or 'tablemap import' to re-run.")
	}

	state := ctrl.State()
	if summary := state.ArchiveSummary; summary != nil {
		fmt.Println()
		printArchiveSummary(summary)
	}

	if len(state.History) > 0 {
		fmt.Printf("\nRecent imports:\n")
		for _, rec := range state.History {
			fmt.Printf("  %-10s %s  %-24s %6d rows  %d dups  %d rejected\n",
				rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.TableName,
				rec.RowsImported, rec.DuplicateRows, rec.ValidationErrors)
		}
	}

	return nil
}
