// Command portfolioctl administers the feedback store: migrations,
// provisioning, and listing or adding feedback from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/internal/bootstrap"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	storeFlag  string

	cfg *config.Config

	// openStore is swapped in tests.
	openStore = bootstrap.OpenStore
)

var rootCmd = &cobra.Command{
	Use:           "portfolioctl",
	Short:         "Administer the portfolio feedback store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		if storeFlag != "" {
			cfg.Store.Driver = storeFlag
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "override STORE_DRIVER (postgres, supabase, sqlite, memory)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(feedbackCmd)
}

// withStore opens the configured store for one command.
func withStore(ctx context.Context, fn func(store.RecordClient) error) error {
	client, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer client.Close()
	return fn(client)
}

func main() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
