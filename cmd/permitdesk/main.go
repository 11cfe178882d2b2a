package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"permitdesk/internal/config"
	"permitdesk/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg       *config.Config
	cfgSource string
	logger    *zap.Logger
)

// errReported marks errors the user has already been shown
var errReported = errors.New("already reported")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "permitdesk",
	Short: "Search San Francisco mobile food facility permits",
	Long: `permitdesk starts the local permit API and opens a search panel for it.

Run without arguments to open the terminal panel. Use "permitdesk serve"
to open the same panel in a browser instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		svc := config.NewConfigService()
		var err error
		if configPath != "" {
			cfg, err = svc.LoadFromPath(configPath)
			cfgSource = configPath
		} else {
			cfg, cfgSource, err = svc.Load()
		}
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Info("configuration loaded",
			zap.String("source", cfgSource),
			zap.String("command", cmd.Name()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runOpen,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./.permitdesk.toml or the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
