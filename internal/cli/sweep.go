package cli

import (
	"context"

	"quizgen/internal/app"
	"quizgen/internal/config"

	"github.com/spf13/cobra"
)

// NewSweepCmd persists the expired status on overdue assignments once.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue assignments and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	b, err := openStores(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer b.Close()

	services := app.NewServices(b.stores, app.Options{Logger: log})
	n, err := services.Assignments.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	log.Info("sweep finished", "expired", n)
	return nil
}
