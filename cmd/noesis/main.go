package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"noesis/internal/config"
	"noesis/internal/logging"
	"noesis/internal/oracle"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	timeout    time.Duration

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "noesis",
	Short: "noesis - knowledge tree construction and narrative synthesis",
	Long: `noesis decomposes any concept into the tree of things you must understand
first, by recursively asking "what must I understand BEFORE this?". The tree
is then enriched with equations, visual plans, and a narrated scene sequence
that teaches the concept from its foundations up.

Requires an oracle API key: set ANTHROPIC_API_KEY, OPENAI_API_KEY, or
GEMINI_API_KEY, or configure a provider in noesis.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return logging.Configure(workspace, logging.Options{
			Debug: cfg.Logging.Debug || verbose,
			Level: cfg.Logging.Level,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
}

// newOracleClient builds the provider client from config, falling back to
// environment detection when no provider is configured.
func newOracleClient() (oracle.Client, error) {
	if cfg.Oracle.Provider == "" {
		return oracle.NewClientFromEnv()
	}
	return oracle.NewClient(cfg.OracleSettings())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "noesis.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
