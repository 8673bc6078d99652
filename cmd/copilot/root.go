package main

import (
	"github.com/spf13/cobra"

	copilotlog "github.com/aiworkoutgenerator/member-copilot-ai/internal/log"
)

// Global flag values.
var (
	verbose    bool
	quiet      bool
	noColor    bool
	configPath string
)

// rootCmd is the base command for copilot.
var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Resilient client for the member-copilot AI provider",
	Long: `Copilot is the command-line collaborator for the member-copilot AI
client layer. It renders prompt templates, runs completions through the
rate-limited, cached, metrics-tracked client, and checks provider health.

Credentials come from the environment (OPENAI_API_KEY or ANTHROPIC_API_KEY);
everything else is configured in copilot.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		copilotlog.Setup(verbose, quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "copilot.yaml", "path to config file")

	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}
