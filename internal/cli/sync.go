package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

var (
	syncCron  bool
	syncRetry bool
	syncIDs   []string
)

var syncCmd = &cobra.Command{
	Use:   "sync [collection]",
	Short: "Sync a collection into its vector store",
	Long: `Start a sync job for a collection and drive it to completion.

By default every published item is considered; unchanged items are skipped
based on their content fingerprint. Use --retry to re-sync only items whose
last sync failed, or --id to target specific items.

Examples:
  vecsync sync                      # sync the default collection
  vecsync sync handbook             # sync the handbook collection
  vecsync sync handbook --retry     # retry failed items only
  vecsync sync handbook --id docs/setup.md --id docs/intro.md
  vecsync sync handbook --cron      # one batch per minute instead of a tight loop`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncCron, "cron", false, "process one batch per scheduler tick")
	syncCmd.Flags().BoolVar(&syncRetry, "retry", false, "only re-sync items in error state")
	syncCmd.Flags().StringArrayVar(&syncIDs, "id", nil, "sync only the given item ids (repeatable)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	collectionID, err := resolveCollection(arg)
	if err != nil {
		return err
	}

	orch, err := getOrchestrator()
	if err != nil {
		return err
	}

	sel := vsync.Selector{Mode: vsync.SelectAll}
	switch {
	case syncRetry && len(syncIDs) > 0:
		return fmt.Errorf("--retry and --id are mutually exclusive")
	case syncRetry:
		sel = vsync.Selector{Mode: vsync.SelectRetry}
	case len(syncIDs) > 0:
		sel = vsync.Selector{Mode: vsync.SelectIDs, IDs: syncIDs}
	}

	mode := models.ModeDirect
	if syncCron {
		mode = models.ModeCron
	}

	job, err := orch.StartJob(ctx, sel, mode, collectionID)
	if err != nil {
		switch {
		case errors.Is(err, vsync.ErrJobAlreadyActive):
			return fmt.Errorf("a sync job is already active; cancel it first or wait for it to finish")
		case errors.Is(err, vsync.ErrNoItemsFound):
			fmt.Println("Nothing to sync.")
			return nil
		default:
			return err
		}
	}
	fmt.Printf("Syncing %d items from %q\n", job.Total, collectionID)

	if syncCron {
		return runCronSync(ctx, orch)
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return runSyncProgress(orch)
	}
	return runPlainSync(ctx, orch)
}

// runPlainSync drives the job without the interactive UI (pipes, CI).
func runPlainSync(ctx context.Context, orch *vsync.Orchestrator) error {
	job, err := orch.Run(ctx, func(res *vsync.BatchResult) {
		fmt.Printf("  %d/%d items (%d%%), %d errors\n",
			res.Job.Processed, res.Job.Total, res.Job.Percent, res.Job.Errors)
	})
	if err != nil {
		return err
	}
	return reportFinished(job)
}

// runCronSync triggers the first batch and then waits for the in-process
// scheduler to finish the job one batch per tick.
func runCronSync(ctx context.Context, orch *vsync.Orchestrator) error {
	res, err := orch.ProcessNextBatch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  %d/%d items (%d%%)\n", res.Job.Processed, res.Job.Total, res.Job.Percent)

	for !res.Job.Status.Terminal() {
		time.Sleep(5 * time.Second)
		job, err := orch.Status(ctx)
		if err != nil {
			return err
		}
		if job.Processed != res.Job.Processed || job.Status != res.Job.Status {
			fmt.Printf("  %d/%d items (%d%%)\n", job.Processed, job.Total, job.Percent)
		}
		res = &vsync.BatchResult{Job: job}
	}
	return reportFinished(res.Job)
}

func reportFinished(job *models.SyncJob) error {
	switch job.Status {
	case models.JobCompleted:
		if job.Errors > 0 {
			fmt.Printf("Completed with %d errors (%d/%d items). Run with --retry to re-sync failures.\n",
				job.Errors, job.Processed, job.Total)
		} else {
			fmt.Printf("Completed: %d/%d items synced.\n", job.Processed, job.Total)
		}
	case models.JobCanceled:
		fmt.Printf("Canceled after %d/%d items.\n", job.Processed, job.Total)
	case models.JobFailed:
		msg := "unknown error"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return fmt.Errorf("sync failed: %s", msg)
	}
	return nil
}
