package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kaku/infrastructure/di"
	"kaku/interfaces/http/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveHost != "" {
			cfg.ServerHost = serveHost
		}
		if servePort != 0 {
			cfg.ServerPort = servePort
		}

		c, cleanup, err := di.InitializeContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return server.Run(ctx, c)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host; overrides SERVER_HOST")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port; overrides SERVER_PORT")
	rootCmd.AddCommand(serveCmd)
}
