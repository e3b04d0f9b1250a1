package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunerd/tunerd"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tuner daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tunerd.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			app, err := tunerd.New(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := tunerd.LoadConfig(*configPath); err != nil {
				return err
			}
			cmd.Println("config ok")
			return nil
		},
	}
}
