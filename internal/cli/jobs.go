package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsFileID string

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background mapping jobs",
	Long: `List recent background mapping jobs or inspect a specific job by ID.

Examples:
  tablemap jobs                  # List recent jobs
  tablemap jobs --file 9c41d2    # Jobs for one file
  tablemap jobs j-581f           # Show details for job j-581f`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsFileID, "file", "", "only jobs for this file")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx, jobsFileID, 20)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-10s %s\n", "ID", "FILE", "STATUS", "PROGRESS", "CREATED")
	fmt.Println("------------------------------------------------------------------------")

	for _, job := range jobs {
		progress := ""
		if job.Progress != nil {
			progress = fmt.Sprintf("%d%%", *job.Progress)
		}
		created := job.CreatedAt.Format("15:04:05")
		fmt.Printf("%-10s %-10s %-12s %-10s %s\n", job.ID, job.FileID, job.Status, progress, created)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  File: %s\n", job.FileID)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Stage != "" {
		fmt.Printf("  Stage: %s\n", job.Stage)
	}
	if job.Progress != nil {
		fmt.Printf("  Progress: %d%%\n", *job.Progress)
	}
	if job.TriggerSource != "" {
		fmt.Printf("  Triggered by: %s\n", job.TriggerSource)
	}
	if job.Attempt > 1 {
		fmt.Printf("  Attempt: %d\n", job.Attempt)
	}
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.FinishedAt != nil {
		fmt.Printf("  Finished: %s\n", job.FinishedAt.Format(time.RFC3339))
		if job.StartedAt != nil {
			duration := job.FinishedAt.Sub(*job.StartedAt)
			fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
		}
	}

	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", *job.ErrorMessage)
	}

	if table := resultMetaString(job, "table_name"); table != "" {
		fmt.Println("\nResult:")
		fmt.Printf("  Table: %s\n", table)
		if rows, ok := resultMetaNumber(job, "rows_imported"); ok {
			fmt.Printf("  Rows imported: %d\n", rows)
		}
	}

	return nil
}
