package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"streamqa/internal/server"

	"github.com/spf13/cobra"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock streaming server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddress != "" {
			cfg.Server.Address = serveAddress
		}

		zapLogger := newLogger(cfg)
		defer zapLogger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (overrides server.address)")
}
