package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin-console",
		Short:         "Admin console backend and operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitConfig()
			cfg := config.Load()
			logger.Init(logger.Config{
				Level:       logger.Level(cfg.LogLevel),
				Environment: cfg.Environment,
				Version:     cfg.Version,
			})
		},
	}

	root.AddCommand(
		newServerCmd(),
		newMigrateCmd(),
		newTemplateCmd(),
		newBulkCmd(),
		newImportCmd(),
		newUsersCmd(),
		newSeedCmd(),
	)
	return root
}

// apiClient builds a console API client from CONSOLE_API_URL and CONSOLE_TOKEN.
func apiClient() (*client.Client, error) {
	cfg := config.Load()
	if cfg.ConsoleToken == "" {
		return nil, errors.New("CONSOLE_TOKEN is required")
	}
	return client.New(cfg.ConsoleAPIURL, cfg.ConsoleToken, client.WithLogger(logger.Get())), nil
}
