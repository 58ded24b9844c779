package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/vecsync-go/internal/db"
	"github.com/raphaelgruber/vecsync-go/internal/models"
)

var recordsErrorsOnly bool

var recordsCmd = &cobra.Command{
	Use:   "records [collection]",
	Short: "List per-item sync records",
	Long: `List the sync records of a collection: one row per item with its
status, content fingerprint and last sync time.

Examples:
  vecsync records handbook
  vecsync records handbook --errors   # only failed items`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecords,
}

func init() {
	recordsCmd.Flags().BoolVar(&recordsErrorsOnly, "errors", false, "only show items in error state")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	collectionID, err := resolveCollection(arg)
	if err != nil {
		return err
	}

	records := db.NewRecords(dbClient)
	var recs []models.TrainingRecord
	if recordsErrorsOnly {
		recs, err = records.ListErrored(ctx, collectionID, 0)
	} else {
		recs, err = records.ListByCollection(ctx, collectionID, 0)
	}
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	fmt.Printf("%-40s %-10s %-12s %s\n", "ITEM", "STATUS", "HASH", "LAST SYNCED")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, rec := range recs {
		hash := rec.ContentHash
		if len(hash) > 10 {
			hash = hash[:10]
		}
		synced := "-"
		if !rec.LastSynced.IsZero() {
			synced = rec.LastSynced.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-40s %-10s %-12s %s\n", rec.ItemID, rec.Status, hash, synced)
		if rec.Status == models.RecordError && rec.ErrorMessage != nil {
			code := ""
			if rec.ErrorCode != nil {
				code = fmt.Sprintf("[%s] ", *rec.ErrorCode)
			}
			fmt.Printf("    %s%s\n", code, *rec.ErrorMessage)
		}
	}

	synced, err := records.LastSyncedAt(ctx, collectionID)
	if err == nil && !synced.IsZero() {
		fmt.Printf("\nLast successful sync: %s\n", synced.Format("2006-01-02 15:04:05"))
	}
	return nil
}
