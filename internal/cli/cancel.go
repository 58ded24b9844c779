package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/vecsync-go/internal/db"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Request cancellation of the running sync job",
	Long: `Mark the current sync job for cancellation.

The running process stops at the next item boundary; items already synced
stay synced. A canceled job can be re-run at any time and will skip
unchanged items.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobs := db.NewJobs(dbClient)

	job, err := jobs.Get(ctx)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil || job.Status.Terminal() {
		fmt.Println("No active sync job.")
		return nil
	}

	// The cancel flag is persisted so the process driving the job picks it
	// up at the next batch or item boundary, even across a restart.
	flag := true
	if _, err := jobs.Update(ctx, vsync.JobPatch{CancelRequested: &flag}); err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	fmt.Printf("Cancellation requested for %q (%d/%d items done).\n",
		job.CollectionID, job.Processed, job.Total)
	return nil
}
