package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/gateway-go/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a gateway configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version, model backend)
  - Field types and constraints
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  gateway validate -c config.yaml

  # Strict validation (fail on missing env vars)
  gateway validate -c config.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file and prints a summary.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []infraconfig.LoaderOption{
		infraconfig.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, infraconfig.WithStrictEnv(true))
	}

	loader := infraconfig.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Backend: %s\n", cfg.Model.Backend)
	fmt.Fprintf(a.stdout, "  Model: %s\n", cfg.Model.Name)
	fmt.Fprintf(a.stdout, "  Max turns: %d\n", cfg.EffectiveMaxTurns())

	if cfg.SystemPrompt != "" {
		fmt.Fprintf(a.stdout, "  System prompt: %d bytes\n", len(cfg.SystemPrompt))
	}

	if len(cfg.Providers) > 0 {
		fmt.Fprintf(a.stdout, "  Providers: %d\n", len(cfg.Providers))
		for _, p := range cfg.Providers {
			fmt.Fprintf(a.stdout, "    - %s (%s)\n", p.Name, p.Command)
		}
	}

	if len(cfg.WasmTools) > 0 {
		fmt.Fprintf(a.stdout, "  WebAssembly tools: %d\n", len(cfg.WasmTools))
		for _, w := range cfg.WasmTools {
			fmt.Fprintf(a.stdout, "    - %s (%s)\n", w.Name, w.Path)
		}
	}

	if cfg.Compiler.Trust != "" {
		fmt.Fprintf(a.stdout, "  Compiler trust: %s\n", cfg.Compiler.Trust)
	}

	if cfg.Resilience.CircuitBreaker.Enabled {
		fmt.Fprintf(a.stdout, "  Circuit breaker: enabled (threshold=%d)\n",
			cfg.Resilience.CircuitBreaker.Threshold)
	}
	if cfg.Resilience.Bulkhead.Enabled {
		fmt.Fprintf(a.stdout, "  Bulkhead: enabled (max_concurrent=%d)\n",
			cfg.Resilience.Bulkhead.MaxConcurrent)
	}

	return nil
}
