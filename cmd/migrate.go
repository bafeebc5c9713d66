package main

import (
	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := config.InitDB(cfg); err != nil {
				return err
			}
			defer config.CloseDB()
			return migrations.Run(config.DB.DB, config.DB.DriverName(), args[0])
		},
	}
}
