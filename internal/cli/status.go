package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/vecsync-go/internal/db"
	"github.com/raphaelgruber/vecsync-go/internal/models"
)

var statusHistory bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sync job",
	Long: `Show the current sync job and its progress.

Examples:
  vecsync status             # current job
  vecsync status --history   # finished jobs`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "show finished jobs")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobs := db.NewJobs(dbClient)

	if statusHistory {
		return showHistory(ctx, jobs)
	}

	job, err := jobs.Get(ctx)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		fmt.Println("No sync job has run yet.")
		return nil
	}

	fmt.Printf("Job: %s\n", job.CollectionID)
	fmt.Printf("  Status:   %s\n", job.Status)
	fmt.Printf("  Mode:     %s\n", job.Mode)
	fmt.Printf("  Progress: %d/%d (%d%%)\n", job.Processed, job.Total, job.Percent)
	if job.Errors > 0 {
		fmt.Printf("  Errors:   %d\n", job.Errors)
	}
	fmt.Printf("  Started:  %s\n", job.StartedAt.Format(time.RFC3339))
	fmt.Printf("  Updated:  %s\n", job.LastUpdate.Format(time.RFC3339))
	if job.CancelRequested && !job.Status.Terminal() {
		fmt.Println("  Cancellation requested.")
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		fmt.Printf("  Error:    %s\n", *job.ErrorMessage)
	}
	if job.Status == models.JobCompleted && job.Errors > 0 {
		fmt.Println("\nSome items failed; run 'vecsync sync --retry' to re-sync them.")
	}

	return nil
}

func showHistory(ctx context.Context, jobs *db.Jobs) error {
	entries, err := jobs.History(ctx, 20)
	if err != nil {
		return fmt.Errorf("job history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No finished jobs.")
		return nil
	}

	fmt.Printf("%-12s %-10s %-12s %-10s %s\n", "COLLECTION", "STATUS", "PROGRESS", "ERRORS", "FINISHED")
	fmt.Println("------------------------------------------------------------------")
	for _, e := range entries {
		progress := fmt.Sprintf("%d/%d", e.Processed, e.Total)
		fmt.Printf("%-12s %-10s %-12s %-10d %s\n",
			e.CollectionID, e.Status, progress, e.Errors, e.FinishedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
