package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/config"
	"github.com/NadafAyan/BloodShare/internal/observability"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "bloodshare",
	Short:         "BloodShare donor registry",
	Long:          `Registers blood donors, gates them behind operator approval and serves donor search.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger.With(zap.String("service", cfg.App.Name)), nil
}
