package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a running mapping job",
	Long: `Attach a live progress display to a background mapping job until it
finishes. Ctrl+C detaches; the job keeps running on the server.

Example:
  tablemap watch j-581f`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchJob(context.Background(), args[0])
}

// watchJob attaches the progress UI to a job, skipping straight to the
// detail view when the job is already terminal.
func watchJob(ctx context.Context, jobID string) error {
	job, err := apiClient.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if job.Status.Terminal() {
		return showJob(ctx, jobID)
	}

	return RunJobProgress(apiClient, job)
}
