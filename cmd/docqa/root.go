package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"docqa/internal/app"
	"docqa/internal/config"
)

var debugLog bool

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document in your own language",
	Long: `docqa answers questions about an uploaded PDF, Word or text document.
Questions and answers may be in a different language than the document:
they are translated on the way in and out, and every answer cites the
passages it was built from.

Configuration is read from the environment (and a .env file if present).
OPENAI_API_KEY is required.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "verbose logging (same as APP_DEBUG=true)")
}

// loadConfig reads the environment and applies overrides before validation.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}
	if err := config.Init(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}
	if debugLog {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	return cfg, nil
}

// newApp builds and initializes the application from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	if err := a.Init(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}
