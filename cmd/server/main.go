package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/config"
	pgInfra "github.com/fastygo/taskboard/internal/infrastructure/postgres"
	"github.com/fastygo/taskboard/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Task tracking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := bootstrap()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			steps := 0
			if down > 0 {
				steps = -down
			}
			if err := pgInfra.Migrate(cfg, steps, zapLogger); err != nil {
				zapLogger.Error("migration failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of versions to roll back")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger error: %w", err)
	}
	return cfg, zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment)), nil
}
