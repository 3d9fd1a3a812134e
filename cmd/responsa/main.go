package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
)

var (
	configFiles []string

	// Global state populated by setup before any subcommand runs
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "responsa",
	Short: "Ask questions about your own documents",
	Long: `Responsa ingests PDF, DOCX, email and plain-text documents into a
vector index and answers natural-language questions about them, citing
the passages each answer is based on.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"Configuration file path (can be repeated, later files override earlier ones)")
	rootCmd.AddCommand(ingestCmd, askCmd, listCmd, deleteCmd, versionCmd)
}

// setup loads configuration and initializes logging. Order matters:
// defaults -> config file(s) -> environment -> flags.
func setup() error {
	// .env is optional and only fills unset environment variables
	_ = godotenv.Load()

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("responsa.toml"); err == nil {
			configFiles = append(configFiles, "responsa.toml")
		} else if _, err := os.Stat("deployments/local/responsa.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/responsa.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("index_provider", config.Index.Provider).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
