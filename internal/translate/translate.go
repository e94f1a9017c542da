package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrTranslation = errors.New("translation failed")

// Provider is one external translation method.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Options struct {
	// Timeout bounds every provider call. Zero means no extra deadline.
	Timeout time.Duration
	// MaxSegment is the longest text, in runes, sent in one call.
	MaxSegment int
	// Concurrency bounds parallel segment and batch calls.
	Concurrency int
	Debug       bool
}

const (
	DefaultMaxSegment  = 5000
	DefaultConcurrency = 4
)

// Service translates through a cache and an ordered provider chain.
type Service struct {
	cache     Cache
	providers []Provider
	opts      Options

	hits   atomic.Int64
	misses atomic.Int64

	mu       sync.Mutex
	calls    map[string]int64
	failures map[string]int64
}

func NewService(cache Cache, providers []Provider, opts Options) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if opts.MaxSegment <= 0 {
		opts.MaxSegment = DefaultMaxSegment
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Service{
		cache:     cache,
		providers: providers,
		opts:      opts,
		calls:     make(map[string]int64),
		failures:  make(map[string]int64),
	}
}

// Providers lists provider names in chain order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Translate returns text in the target language. Identical languages and blank
// text return the input untouched. Errors wrap ErrTranslation.
func (s *Service) Translate(ctx context.Context, text, source, target string) (string, error) {
	source, target = NormalizeCode(source), NormalizeCode(target)
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if source == "" || target == "" {
		return "", fmt.Errorf("%w: missing language (source %q, target %q)", ErrTranslation, source, target)
	}

	key := NewKey(text, source, target)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("⚠️  translation cache read: %v", err)
	} else if ok {
		s.hits.Add(1)
		if s.opts.Debug {
			log.Printf("🗂️  translation cache hit %s", key)
		}
		return cached, nil
	}
	s.misses.Add(1)

	if len(s.providers) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrTranslation)
	}

	var errs []error
	for _, p := range s.providers {
		start := time.Now()
		out, err := s.translateWith(ctx, p, text, source, target)
		if err != nil {
			s.record(p.Name(), false)
			log.Printf("⚠️  [%s] translate %s→%s failed: %v", p.Name(), source, target, err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		s.record(p.Name(), true)
		if s.opts.Debug {
			log.Printf("🌐 [%s] translated %d characters %s→%s in %s", p.Name(), len([]rune(text)), source, target, time.Since(start))
		}

		if err := s.cache.Set(ctx, key, out); err != nil {
			log.Printf("⚠️  translation cache write: %v", err)
		}
		return out, nil
	}

	return "", fmt.Errorf("%w: %s→%s: %w", ErrTranslation, source, target, errors.Join(errs...))
}

// TranslateBatch translates texts in parallel and keeps their order. Any failure fails the batch.
func (s *Service) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, text := range texts {
		g.Go(func() error {
			translated, err := s.Translate(ctx, text, source, target)
			if err != nil {
				return err
			}
			out[i] = translated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) translateWith(ctx context.Context, p Provider, text, source, target string) (string, error) {
	segments := Split(text, s.opts.MaxSegment)
	if len(segments) == 1 {
		out, err := s.call(ctx, p, segments[0].Text, source, target)
		if err != nil {
			return "", err
		}
		return out + segments[0].Sep, nil
	}

	parts := make([]string, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			parts[i] = seg.Text + seg.Sep
			continue
		}
		g.Go(func() error {
			out, err := s.call(gctx, p, seg.Text, source, target)
			if err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			parts[i] = out + seg.Sep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

func (s *Service) call(ctx context.Context, p Provider, text, source, target string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	out, err := p.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

func (s *Service) record(provider string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[provider]++
	if !ok {
		s.failures[provider]++
	}
}

// Stats is a snapshot of cache and provider counters.
type Stats struct {
	CacheHits    int64            `json:"cache_hits"`
	CacheMisses  int64            `json:"cache_misses"`
	CacheEntries int              `json:"cache_entries"`
	Calls        map[string]int64 `json:"calls"`
	Failures     map[string]int64 `json:"failures"`
}

func (s *Service) Stats(ctx context.Context) Stats {
	st := Stats{
		CacheHits:   s.hits.Load(),
		CacheMisses: s.misses.Load(),
		Calls:       make(map[string]int64),
		Failures:    make(map[string]int64),
	}
	if n, err := s.cache.Len(ctx); err == nil {
		st.CacheEntries = n
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.calls {
		st.Calls[k] = v
	}
	for k, v := range s.failures {
		st.Failures[k] = v
	}
	return st
}

func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// Ping runs a short uncached translation through every provider.
func (s *Service) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.providers))
	for _, p := range s.providers {
		_, err := s.call(ctx, p, "Hello", "en", "es")
		out[p.Name()] = err
	}
	return out
}

// NormalizeCode lower-cases a language code and strips any region suffix.
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
