package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/philippgille/chromem-go"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/extractor"
	"docqa/internal/langdetect"
	"docqa/internal/llm"
	"docqa/internal/rag"
	"docqa/internal/ratelimit"
	"docqa/internal/session"
	"docqa/internal/translate"
	"docqa/internal/vectorindex"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyQuestion       = errors.New("question is empty")
)

// App ties extraction, indexing, translation and answering to user sessions.
type App struct {
	cfg        *config.Config
	extractor  *extractor.Extractor
	chunker    chunker.Chunker
	catalog    *langdetect.Catalog
	detector   *langdetect.Detector
	translator *translate.Service
	index      *vectorindex.Index
	rag        *rag.Orchestrator
	sessions   *session.Store
	pinger     pinger
	closers    []io.Closer
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the external collaborators. New builds real ones from config;
// tests pass fakes to NewWithDeps.
type Deps struct {
	Embed     chromem.EmbeddingFunc
	Generator rag.Generator
	Providers []translate.Provider
	Cache     translate.Cache
	Closers   []io.Closer
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  2,
		Limiter:     ratelimit.New(ratelimit.OpenAI),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	embed := llm.NewEmbeddingFunc(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIEmbedModel,
		cfg.EmbedTimeout, ratelimit.New(ratelimit.OpenAI))

	cache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	providers, closers := newProviders(ctx, cfg, client)
	if len(providers) == 0 {
		log.Printf("⚠️  No translation providers available, answers stay in the document language")
	}

	a, err := NewWithDeps(cfg, Deps{
		Embed:     embed,
		Generator: client,
		Providers: providers,
		Cache:     cache,
		Closers:   append(closers, cache),
	})
	if err != nil {
		return nil, err
	}
	a.pinger = client
	return a, nil
}

func NewWithDeps(cfg *config.Config, deps Deps) (*App, error) {
	catalog := langdetect.DefaultCatalog()
	defaultLang, ok := catalog.Normalize(cfg.DefaultLanguage)
	if !ok {
		return nil, fmt.Errorf("%w: DEFAULT_LANGUAGE %q", ErrUnsupportedLanguage, cfg.DefaultLanguage)
	}

	chunkCfg := chunker.Config{MaxChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	if err := chunkCfg.Validate(); err != nil {
		return nil, err
	}

	index, err := vectorindex.Open(cfg.VectorDBPath, deps.Embed)
	if err != nil {
		return nil, err
	}

	detector := langdetect.NewDetector(catalog, defaultLang)
	translator := translate.NewService(deps.Cache, deps.Providers, translate.Options{
		Timeout: cfg.TranslateTimeout,
		Debug:   cfg.Debug,
	})

	a := &App{
		cfg:        cfg,
		extractor:  extractor.New(cfg.MaxFileSize()),
		chunker:    chunker.NewTextChunker(chunkCfg),
		catalog:    catalog,
		detector:   detector,
		translator: translator,
		index:      index,
		sessions:   session.NewStore(defaultLang),
		closers:    deps.Closers,
	}
	a.rag = rag.New(index, deps.Generator, translator, detector, catalog, rag.Options{
		TopK:          cfg.TopK,
		MinSimilarity: cfg.MinSimilarity,
		Timeout:       cfg.LLMTimeout,
		Debug:         cfg.Debug,
	})
	return a, nil
}

// Init prepares storage and reports on external services. Unreachable
// services are logged, not fatal: fallbacks may still work.
func (a *App) Init(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Sessions are not persisted, so anything left in a persistent index is unreachable.
	if stale := a.index.Documents(); len(stale) > 0 {
		for _, id := range stale {
			if err := a.index.Clear(id); err != nil {
				log.Printf("⚠️  Failed to remove stale document %s: %v", id, err)
			}
		}
		log.Printf("🧹 Removed %d stale documents from the vector database", len(stale))
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if a.pinger != nil {
		if err := a.pinger.Ping(ctx); err != nil {
			log.Printf("⚠️  LLM endpoint check failed: %v", err)
		} else {
			log.Printf("✅ LLM endpoint reachable")
		}
	}
	for name, err := range a.translator.Ping(ctx) {
		if err != nil {
			log.Printf("⚠️  Translation provider %s check failed: %v", name, err)
		} else {
			log.Printf("✅ Translation provider %s reachable", name)
		}
	}
	return nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases external clients.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) session(id string) (*session.Session, error) {
	s, ok := a.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// CreateSession starts a new empty session.
func (a *App) CreateSession() session.Snapshot {
	return a.sessions.Create().Snapshot()
}

// Session returns the session for id, creating it when missing.
func (a *App) Session(id string) session.Snapshot {
	return a.sessions.GetOrCreate(id).Snapshot()
}

func (a *App) Status(id string) (session.Snapshot, error) {
	s, err := a.session(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// SetLanguage sets the session's response language.
func (a *App) SetLanguage(id, code string) (string, error) {
	s, err := a.session(id)
	if err != nil {
		return "", err
	}
	normalized, ok := a.catalog.Normalize(code)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	s.SetLanguage(normalized)
	return normalized, nil
}

// Languages lists the supported response languages.
func (a *App) Languages() []langdetect.Language {
	codes := a.catalog.Codes()
	out := make([]langdetect.Language, 0, len(codes))
	for _, code := range codes {
		if l, ok := a.catalog.Lookup(code); ok {
			out = append(out, l)
		}
	}
	return out
}

// DefaultLanguage is the response language of new sessions.
func (a *App) DefaultLanguage() string {
	return a.sessions.Language()
}

// SupportedFormats lists accepted file extensions.
func (a *App) SupportedFormats() []string {
	return a.extractor.Supported()
}

// Stats summarizes sessions, indexed documents and translation counters.
type Stats struct {
	Sessions    int             `json:"sessions"`
	Documents   int             `json:"documents"`
	Providers   []string        `json:"providers"`
	Translation translate.Stats `json:"translation"`
}

func (a *App) Stats(ctx context.Context) Stats {
	return Stats{
		Sessions:    a.sessions.Len(),
		Documents:   len(a.index.Documents()),
		Providers:   a.translator.Providers(),
		Translation: a.translator.Stats(ctx),
	}
}

func (a *App) ClearTranslationCache(ctx context.Context) error {
	return a.translator.ClearCache(ctx)
}

// RunSweeper removes idle sessions and their vectors until ctx is done.
func (a *App) RunSweeper(ctx context.Context) error {
	ttl := a.cfg.SessionTTL
	if ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.sweep(ttl)
		}
	}
}

func (a *App) sweep(ttl time.Duration) int {
	removed := a.sessions.Sweep(ttl)
	for _, s := range removed {
		if doc := s.Document(); doc != nil {
			if err := a.index.Clear(doc.ID); err != nil {
				log.Printf("⚠️  Failed to clear vectors of expired session %s: %v", s.ID, err)
			}
		}
	}
	if len(removed) > 0 {
		log.Printf("🧹 Expired %d idle sessions", len(removed))
	}
	return len(removed)
}
