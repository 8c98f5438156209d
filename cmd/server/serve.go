package main

import (
	"github.com/prperemyshlev/slangdex/internal/app"
	"github.com/prperemyshlev/slangdex/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}

		infra, err := app.NewInfrastructure(ctx, *cfg)
		if err != nil {
			return err
		}

		application, err := app.NewApp(infra, cfg)
		if err != nil {
			_ = infra.Shutdown(ctx)
			return err
		}

		if err := application.Run(ctx); err != nil {
			infra.Logger().Error("Application failed", zap.Error(err))
			return err
		}
		return nil
	},
}
