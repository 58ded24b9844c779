package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

var removeCollection string

var removeCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove an item from the vector store",
	Long: `Remove one item's artifact from the remote vector store and drop its
local sync record. The content file itself is untouched; the item will be
re-synced on the next run unless it is deleted or marked as draft.

Examples:
  vecsync remove docs/obsolete.md
  vecsync remove docs/obsolete.md --collection handbook`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeCollection, "collection", "", "collection the item belongs to (default: first configured)")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	collectionID, err := resolveCollection(removeCollection)
	if err != nil {
		return err
	}

	orch, err := getOrchestrator()
	if err != nil {
		return err
	}

	itemID := args[0]
	if err := orch.RemoveItem(ctx, collectionID, itemID); err != nil {
		if errors.Is(err, vsync.ErrInvalidItem) {
			return fmt.Errorf("no sync record for %q in %q", itemID, collectionID)
		}
		return err
	}

	fmt.Printf("Removed %q from %q.\n", itemID, collectionID)
	return nil
}
