package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/llm"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/parse"
)

// Complete command flags.
var (
	completeTemplate string
	completeCatalog  string
	completeVars     []string
	completeCacheKey string
	completeJSON     bool
	completeStream   bool
	completeMetrics  bool
)

// completeCmd runs a completion through the resilient client.
var completeCmd = &cobra.Command{
	Use:   "complete [prompt...]",
	Short: "Run a completion through the client",
	Long: `Run a completion through the rate-limited, cached client.

The prompt is either given inline as arguments or rendered from a catalog
template with --template and repeated --var key=value flags. With --json the
response is pushed through the structured-recovery parser and the recovered
JSON is printed; otherwise the raw text is printed.

Examples:
  copilot complete "suggest a rest-day stretch routine"
  copilot complete --template workout-plan --var level=beginner --var days=3 --json
  copilot complete --stream "explain progressive overload"`,
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVarP(&completeTemplate, "template", "t", "", "render this catalog template as the prompt")
	completeCmd.Flags().StringVar(&completeCatalog, "catalog", "", "path to template catalog (overrides config)")
	completeCmd.Flags().StringArrayVar(&completeVars, "var", nil, "template variable as key=value (repeatable)")
	completeCmd.Flags().StringVar(&completeCacheKey, "cache-key", "", "fingerprint for response caching")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "require structured JSON output")
	completeCmd.Flags().BoolVar(&completeStream, "stream", false, "stream the response as it is generated")
	completeCmd.Flags().BoolVar(&completeMetrics, "show-metrics", false, "print a metrics snapshot after the call")
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	opts := llm.Options{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout.Std(),
		CacheKey:    completeCacheKey,
		RequireJSON: completeJSON,
	}

	defer func() {
		if completeMetrics {
			printMetrics(client)
		}
	}()

	ctx := cmd.Context()

	if completeTemplate != "" {
		tpl, err := loadTemplate(cfg, completeCatalog, completeTemplate)
		if err != nil {
			return err
		}
		vars, err := parseVarFlags(completeVars)
		if err != nil {
			return err
		}

		result, err := client.CompleteFromTemplate(ctx, tpl, vars, opts)
		if err != nil {
			return err
		}
		return printResult(result)
	}

	if len(args) == 0 {
		return fmt.Errorf("provide a prompt or --template")
	}
	msgs := []llm.Message{{Role: llm.RoleUser, Content: strings.Join(args, " ")}}

	if completeStream {
		return client.Stream(ctx, msgs, func(chunk string) error {
			_, err := fmt.Print(chunk)
			return err
		}, opts)
	}

	resp, err := client.Complete(ctx, msgs, opts)
	if err != nil {
		return err
	}
	if completeJSON {
		return printResult(parse.Parse(resp.Content()))
	}
	fmt.Println(resp.Content())
	return nil
}

// printResult writes a parse result: pretty JSON when the chain recovered a
// value, the raw text otherwise.
func printResult(result parse.Result) error {
	if !result.Parsed() {
		fmt.Println(result.Raw)
		return nil
	}

	var pretty map[string]any
	if err := json.Unmarshal(result.Value, &pretty); err != nil {
		// Arrays and scalars print as-is.
		fmt.Println(string(result.Value))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.Repaired {
		warn := color.New(color.FgYellow)
		if noColor {
			warn.DisableColor()
		}
		_, _ = warn.Fprintln(os.Stderr, "note: response needed JSON repair; treat as lower confidence")
	}
	return nil
}

// printMetrics dumps the client's metrics snapshot to stderr.
func printMetrics(client *llm.Client) {
	snap := client.Metrics()
	bold := color.New(color.Bold)
	if noColor {
		bold.DisableColor()
	}

	_, _ = bold.Fprintln(os.Stderr, "metrics:")
	fmt.Fprintf(os.Stderr, "  requests:        %d (errors: %d, rate: %.1f%%)\n",
		snap.RequestCount, snap.ErrorCount, snap.ErrorRate*100)
	fmt.Fprintf(os.Stderr, "  avg latency:     %s\n", snap.AverageResponseTime)
	fmt.Fprintf(os.Stderr, "  tokens:          %d prompt / %d completion\n",
		snap.TokenUsage.Prompt, snap.TokenUsage.Completion)
	fmt.Fprintf(os.Stderr, "  est. cost:       $%.4f\n", snap.CostEstimate)
	fmt.Fprintf(os.Stderr, "  cache hit rate:  %.1f%% over %d lookups\n",
		snap.CacheHitRate*100, snap.CacheLookups)
}
