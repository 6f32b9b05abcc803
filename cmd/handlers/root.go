package handlers

import (
	"fmt"
	"os"

	"carbonlens/internal/config"
	"carbonlens/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carbonlens",
		Short: "CarbonLens adjusts vehicle manufacturer sustainability scores.",
		Long: `CarbonLens adjusts a manufacturer's base sustainability score using
evidence from its sustainability report and from public social discussion.

Report paragraphs and social posts are classified for sentiment, the two
sentiments are fused into a bounded adjustment, and a short explanation of
the change is produced.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.carbonlens.yaml)")

	rootCmd.AddCommand(NewAdjustCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads the configuration and installs the configured logger.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	if err := logger.Configure(cfg.LogLevel(), cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}
