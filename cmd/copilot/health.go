package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
)

// healthTimeout bounds the whole health probe fan-out.
const healthTimeout = 30 * time.Second

// healthCmd probes every configured provider with a minimal completion.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check provider health",
	Long: `Probe each provider that has a credential in the environment with a
minimal low-token completion and report whether it answered. Providers are
checked concurrently. Exits non-zero if no provider is healthy.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	providers := availableProviders()
	if len(providers) == 0 {
		return fmt.Errorf("no provider credentials found: set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	var mu sync.Mutex
	healthy := make(map[string]bool, len(providers))

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range providers {
		name := name
		g.Go(func() error {
			ok := probeProvider(ctx, cfg, name)
			mu.Lock()
			healthy[name] = ok
			mu.Unlock()
			return nil
		})
	}
	// Probes record failures instead of returning them, so Wait cannot fail;
	// the group exists for the shared cancellation context.
	_ = g.Wait()

	return printHealth(healthy)
}

// availableProviders lists providers that have a credential in the
// environment.
func availableProviders() []string {
	var providers []string
	if os.Getenv("OPENAI_API_KEY") != "" {
		providers = append(providers, config.ProviderOpenAI)
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		providers = append(providers, config.ProviderAnthropic)
	}
	return providers
}

// probeProvider builds a client for the named provider and runs the health
// check completion.
func probeProvider(ctx context.Context, base *config.Config, provider string) bool {
	cfg := *base
	cfg.Provider = provider
	if provider != base.Provider {
		// The configured model belongs to the configured provider; let the
		// other transport fall back to its own default.
		cfg.Model = ""
	}

	client, err := buildClient(&cfg)
	if err != nil {
		return false
	}
	return client.HealthCheck(ctx)
}

// printHealth renders the up/down table and returns an error when nothing
// is healthy.
func printHealth(healthy map[string]bool) error {
	up := color.New(color.FgGreen)
	down := color.New(color.FgRed)
	if noColor {
		up.DisableColor()
		down.DisableColor()
	}

	names := make([]string, 0, len(healthy))
	for name := range healthy {
		names = append(names, name)
	}
	sort.Strings(names)

	anyUp := false
	for _, name := range names {
		if healthy[name] {
			anyUp = true
			fmt.Printf("%-12s %s\n", name, up.Sprint("ok"))
		} else {
			fmt.Printf("%-12s %s\n", name, down.Sprint("unreachable"))
		}
	}

	if !anyUp {
		return fmt.Errorf("no healthy providers")
	}
	return nil
}
