package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/llm"
	"docqa/internal/vectorindex"
)

var (
	// ErrGeneration means no answer could be produced: the completion or
	// retrieval service failed, or the model returned nothing.
	ErrGeneration = errors.New("answer generation failed")
	// ErrNoContext means nothing in the document is similar enough to the question.
	ErrNoContext = errors.New("no relevant context found in the document")
)

const (
	DefaultTopK          = 4
	DefaultMinSimilarity = 0.3
	previewLength        = 200
)

type Retriever interface {
	Query(ctx context.Context, docID, text string, k int) ([]vectorindex.Match, error)
}

type Generator interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// UsageReporter is implemented by generators that also report the model and
// token usage of each reply.
type UsageReporter interface {
	Chat(ctx context.Context, messages []llm.Message) (*llm.Completion, error)
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Detector interface {
	DetectWithHint(text, hint string) string
}

// LanguageNamer turns a code into a name usable in prompts.
type LanguageNamer interface {
	Name(code string) string
}

type Options struct {
	TopK          int
	MinSimilarity float32
	// Timeout bounds a single completion call.
	Timeout time.Duration
	Debug   bool
}

type Question struct {
	Text             string
	Document         *domain.Document
	ResponseLanguage string
}

// Answer is a grounded reply. Query is the question as sent to retrieval.
type Answer struct {
	Text             string
	Language         string
	QuestionLanguage string
	Query            string
	Sources          []domain.Source
	Warnings         []string
	Model            string
	TokensUsed       int
	Elapsed          time.Duration
}

// Orchestrator answers questions about one indexed document.
type Orchestrator struct {
	retriever  Retriever
	generator  Generator
	translator Translator
	detector   Detector
	names      LanguageNamer
	opts       Options
}

func New(retriever Retriever, generator Generator, translator Translator, detector Detector, names LanguageNamer, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Orchestrator{
		retriever:  retriever,
		generator:  generator,
		translator: translator,
		detector:   detector,
		names:      names,
		opts:       opts,
	}
}

// Answer runs retrieval and generation for q. Translation failures are
// reported as warnings, never as errors. ErrNoContext is returned together
// with a partial Answer carrying the detected languages.
func (o *Orchestrator) Answer(ctx context.Context, q Question) (*Answer, error) {
	start := time.Now()
	if q.Document == nil {
		return nil, errors.New("no document")
	}
	question := strings.TrimSpace(q.Text)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	docLang := q.Document.Language
	respLang := q.ResponseLanguage
	if respLang == "" {
		respLang = docLang
	}

	ans := &Answer{
		QuestionLanguage: o.detector.DetectWithHint(question, respLang),
		Language:         respLang,
		Query:            question,
	}

	if ans.QuestionLanguage != docLang {
		translated, err := o.translator.Translate(ctx, question, ans.QuestionLanguage, docLang)
		if err != nil {
			log.Printf("⚠️  Question translation failed, searching with original text: %v", err)
			ans.Warnings = append(ans.Warnings, "question could not be translated; searched with the original text")
		} else {
			ans.Query = translated
		}
	}

	matches, err := o.retrieve(ctx, q.Document.ID, ans.Query)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		log.Printf("🔍 No chunks above similarity %.2f", o.opts.MinSimilarity)
		return ans, ErrNoContext
	}
	log.Printf("🔍 Found %d relevant chunks", len(matches))

	docLangName := o.names.Name(docLang)
	messages := []llm.Message{
		llm.System(systemPrompt(docLangName)),
		llm.User(buildPrompt(ans.Query, docLangName, matches)),
	}

	log.Printf("🤖 Generating answer...")
	out, err := o.generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	text := out.Text

	ans.Text = text
	ans.Model = out.Model
	ans.TokensUsed = out.TokensUsed
	ans.Language = docLang
	if respLang != docLang {
		translated, err := o.translator.Translate(ctx, text, docLang, respLang)
		if err != nil {
			log.Printf("⚠️  Answer translation failed, returning %s answer: %v", docLang, err)
			ans.Warnings = append(ans.Warnings, fmt.Sprintf("answer could not be translated; shown in %s", docLangName))
		} else {
			ans.Text = translated
			ans.Language = respLang
		}
	}

	ans.Sources = make([]domain.Source, len(matches))
	for i, m := range matches {
		ans.Sources[i] = domain.Source{
			DocumentID: q.Document.ID,
			ChunkIndex: m.Chunk.Index,
			Similarity: m.Similarity,
			Page:       m.Chunk.Page,
			Section:    m.Chunk.Section,
			Preview:    preview(m.Chunk.Text, previewLength),
		}
	}
	ans.Elapsed = time.Since(start)

	if o.opts.Debug {
		log.Printf("✅ Answered in %s (%s → %s)", ans.Elapsed, ans.QuestionLanguage, ans.Language)
	}
	return ans, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, docID, query string) ([]vectorindex.Match, error) {
	results, err := o.retriever.Query(ctx, docID, query, o.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieval: %w", ErrGeneration, err)
	}

	var matches []vectorindex.Match
	for _, r := range results {
		if r.Similarity < o.opts.MinSimilarity {
			continue
		}
		matches = append(matches, r)
	}
	return matches, nil
}

func (o *Orchestrator) generate(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	var out *llm.Completion
	if r, ok := o.generator.(UsageReporter); ok {
		c, err := r.Chat(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		out = c
	} else {
		text, err := o.generator.Complete(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		out = &llm.Completion{Text: text}
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrGeneration)
	}
	return out, nil
}
