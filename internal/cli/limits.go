package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/vecsync-go/internal/provider"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the provider's current rate limit headroom",
	Long: `Issue one lightweight request against the provider and print the rate
limit headers it returned.`,
	Args: cobra.NoArgs,
	RunE: runLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}

func runLimits(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client := provider.NewClient(provider.Config{
		APIKey:  cfg.ProviderAPIKey,
		BaseURL: cfg.ProviderBaseURL,
		OrgID:   cfg.ProviderOrgID,
	})

	// any authenticated request refreshes the cached limit snapshot
	if _, err := client.Request(ctx, http.MethodGet, "/files?limit=1", nil, provider.PurposeFiles); err != nil {
		return err
	}

	limits := client.RateLimits()
	if limits.ObservedAt.IsZero() {
		fmt.Println("The provider did not return rate limit headers.")
		return nil
	}

	fmt.Printf("Observed %s\n", limits.ObservedAt.Format(time.RFC3339))
	fmt.Printf("  Requests: %d/%d remaining", limits.RemainingRequests, limits.LimitRequests)
	if limits.ResetRequests > 0 {
		fmt.Printf(" (resets in %s)", limits.ResetRequests)
	}
	fmt.Println()
	if limits.LimitTokens > 0 {
		fmt.Printf("  Tokens:   %d/%d remaining", limits.RemainingTokens, limits.LimitTokens)
		if limits.ResetTokens > 0 {
			fmt.Printf(" (resets in %s)", limits.ResetTokens)
		}
		fmt.Println()
	}
	return nil
}
