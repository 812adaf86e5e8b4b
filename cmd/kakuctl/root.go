package main

import (
	"context"

	"github.com/spf13/cobra"

	"kaku/infrastructure/config"
	"kaku/infrastructure/di"
)

var (
	storeBackend string
	sqlitePath   string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kakuctl",
	Short: "Operate a kaku graph store",
	Long: `kakuctl serves the kaku HTTP API and runs maintenance against its store:
rebuilding and verifying the indices, and running or explaining searches.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend (memory, sqlite, dynamodb); overrides STORE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file; overrides SQLITE_PATH")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig applies the command line overrides on top of the usual
// configuration sources.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if storeBackend != "" {
		cfg.StoreBackend = storeBackend
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// openContainer wires the application and rebuilds its indices
func openContainer(ctx context.Context, quiet bool) (*di.Container, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if quiet && !verbose {
		cfg.LogLevel = "warn"
	}
	c, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Start(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return c, cleanup, nil
}
