package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"docqa/internal/config"
	"docqa/internal/llm"
	"docqa/internal/ratelimit"
	"docqa/internal/translate"
)

func newCache(ctx context.Context, cfg *config.Config) (translate.Cache, error) {
	switch cfg.TranslationCache {
	case "sqlite":
		c, err := translate.NewSQLiteCache(cfg.CacheFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open translation cache: %w", err)
		}
		log.Printf("🗂️  Translation cache: sqlite at %s", c.Path())
		return c, nil
	case "firestore":
		c, err := translate.NewFirestoreCache(ctx, cfg.GoogleProjectID, translate.DefaultFirestoreCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to open translation cache: %w", err)
		}
		log.Printf("🗂️  Translation cache: firestore collection %s", translate.DefaultFirestoreCollection)
		return c, nil
	default:
		return translate.NewMemoryCache(), nil
	}
}

// newProviders builds the configured translation chain. Providers that cannot
// be set up are skipped with a warning.
func newProviders(ctx context.Context, cfg *config.Config, client *llm.Client) ([]translate.Provider, []io.Closer) {
	var (
		providers []translate.Provider
		closers   []io.Closer
	)

	for _, name := range cfg.TranslationProviders {
		switch strings.TrimSpace(name) {
		case "google":
			if cfg.GoogleTranslateKey == "" && cfg.GoogleProjectID == "" {
				log.Printf("⚠️  Skipping google translation: no credentials or project configured")
				continue
			}
			g, err := translate.NewGoogle(ctx, cfg.GoogleProjectID, cfg.GoogleTranslateKey, ratelimit.New(ratelimit.Translate))
			if err != nil {
				log.Printf("⚠️  Skipping google translation: %v", err)
				continue
			}
			providers = append(providers, g)
		case "vertex":
			if cfg.GoogleProjectID == "" {
				log.Printf("⚠️  Skipping vertex translation: GOOGLE_PROJECT_ID is not set")
				continue
			}
			v, err := translate.NewVertex(ctx, cfg.GoogleProjectID, cfg.VertexRegion, cfg.VertexModel, ratelimit.New(ratelimit.Vertex))
			if err != nil {
				log.Printf("⚠️  Skipping vertex translation: %v", err)
				continue
			}
			providers = append(providers, v)
			closers = append(closers, v)
		case "openai":
			providers = append(providers, translate.NewOpenAI(client))
		}
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	log.Printf("🌐 Translation providers: %s", strings.Join(names, " → "))
	return providers, closers
}
