package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/evidentia/internal/model"
)

// Version is set at build time
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "evidentia",
	Short: "Evidentia - Evidence credibility scoring for health claims",
	Long: `Evidentia scores how well a health claim is supported by the evidence
attached to it.

It reads structured evaluation payloads (studies, evidence synthesis,
citation audit, harms and benefits) and produces an auditable 0-100 score,
a qualitative label and a confidence level. Every sub-score, penalty and
cap is reported alongside the total.

Evidentia does not decide what is true. It measures support.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(verbose))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and rubric version for Evidentia.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("evidentia %s (rubric %s)\n", Version, model.DefaultRubric().Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.evidentia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".evidentia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match EVIDENTIA_* (nested keys use _)
	viper.SetEnvPrefix("EVIDENTIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"llm.provider", "llm.model", "llm.api_key", "llm.base_url",
		"pubmed.enabled", "pubmed.api_key", "pubmed.email",
		"cache.enabled", "cache.dir", "output.dir", "output.metrics_file",
	} {
		_ = viper.BindEnv(key)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Conventional variables outside the EVIDENTIA_ namespace
	if cfg.PubMed.APIKey == "" {
		cfg.PubMed.APIKey = os.Getenv("NCBI_API_KEY")
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if err := cfg.Rubric.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric in config: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger on stderr; verbose enables debug records
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
