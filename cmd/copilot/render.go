package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/prompt"
)

// Render command flags.
var (
	renderCatalog string
	renderVars    []string
)

// renderCmd renders a catalog template without calling the provider.
var renderCmd = &cobra.Command{
	Use:   "render <template-id>",
	Short: "Render a prompt template",
	Long: `Render a catalog template with the given variables and print the
resulting prompt without sending it anywhere. Useful for checking what a
template produces before spending tokens on it.

Examples:
  copilot render workout-plan --var level=beginner --var days=3`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderCatalog, "catalog", "", "path to template catalog (overrides config)")
	renderCmd.Flags().StringArrayVar(&renderVars, "var", nil, "template variable as key=value (repeatable)")
}

func runRender(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tpl, err := loadTemplate(cfg, renderCatalog, args[0])
	if err != nil {
		return err
	}
	vars, err := parseVarFlags(renderVars)
	if err != nil {
		return err
	}

	rendered, err := prompt.Render(tpl, vars)
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}
