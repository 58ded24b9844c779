// Package cli provides the command-line interface for vecsync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/vecsync-go/internal/config"
	"github.com/raphaelgruber/vecsync-go/internal/content"
	"github.com/raphaelgruber/vecsync-go/internal/db"
	"github.com/raphaelgruber/vecsync-go/internal/metrics"
	"github.com/raphaelgruber/vecsync-go/internal/provider"
	"github.com/raphaelgruber/vecsync-go/internal/scheduler"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized sync components
	collections *config.CollectionSet
	stats       *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vecsync",
	Short: "Sync content into provider vector stores",
	Long: `Vecsync keeps collections of Markdown content synchronized with an AI
provider's vector stores: it uploads changed items, replaces stale
artifacts without leaving orphans, and tracks per-item sync state in
SurrealDB so interrupted runs resume where they stopped.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: effectiveLogLevel(cfg.LogLevel, verbose),
		})))

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getOrchestrator wires the sync orchestrator and its collaborators from
// the loaded config.
func getOrchestrator() (*vsync.Orchestrator, error) {
	var err error
	collections, err = config.LoadCollections(cfg.CollectionsFile)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}

	stats = metrics.NewCollector()
	client := provider.NewClient(provider.Config{
		APIKey:  cfg.ProviderAPIKey,
		BaseURL: cfg.ProviderBaseURL,
		OrgID:   cfg.ProviderOrgID,
		Metrics: stats,
	})

	return vsync.New(
		db.NewJobs(dbClient),
		db.NewRecords(dbClient),
		content.NewFileSource(cfg.ContentDir),
		client,
		collections,
		scheduler.New(nil),
		vsync.Options{BatchSize: cfg.BatchSize, Metrics: stats},
	), nil
}

// effectiveLogLevel applies the --verbose override to the configured level.
func effectiveLogLevel(base slog.Level, verbose bool) slog.Level {
	if verbose && base > slog.LevelDebug {
		return slog.LevelDebug
	}
	return base
}

// resolveCollection returns the named collection id, or the first one from
// the config file when the argument is empty.
func resolveCollection(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if collections == nil {
		var err error
		collections, err = config.LoadCollections(cfg.CollectionsFile)
		if err != nil {
			return "", fmt.Errorf("load collections: %w", err)
		}
	}
	def := collections.Default()
	if def == nil {
		return "", fmt.Errorf("no collections configured")
	}
	return def.ID, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
