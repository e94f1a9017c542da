package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/langdetect"
	"docqa/internal/llm"
	"docqa/internal/translate"
	"docqa/internal/vectorindex"
)

type fakeRetriever struct {
	matches []vectorindex.Match
	err     error
	gotText string
	gotDoc  string
	gotK    int
}

func (f *fakeRetriever) Query(_ context.Context, docID, text string, k int) ([]vectorindex.Match, error) {
	f.gotDoc, f.gotText, f.gotK = docID, text, k
	return f.matches, f.err
}

type fakeGenerator struct {
	reply    string
	err      error
	messages []llm.Message
	block    bool
}

func (f *fakeGenerator) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

// meteredGenerator reports usage the way the OpenAI client does.
type meteredGenerator struct {
	fakeGenerator
	completion llm.Completion
}

func (m *meteredGenerator) Chat(_ context.Context, messages []llm.Message) (*llm.Completion, error) {
	m.messages = messages
	out := m.completion
	return &out, nil
}

// dictTranslator translates from a fixed table and fails on anything else.
type dictTranslator struct {
	table map[string]string
	calls []string
}

func (d *dictTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	d.calls = append(d.calls, source+"→"+target)
	if out, ok := d.table[source+":"+target+":"+text]; ok {
		return out, nil
	}
	return "", translate.ErrTranslation
}

type fixedDetector string

func (f fixedDetector) DetectWithHint(string, string) string { return string(f) }

func match(index int, sim float32, text string) vectorindex.Match {
	return vectorindex.Match{
		Chunk:      chunker.CreateChunk("doc1", index, index*100, index*100+len(text), text),
		Similarity: sim,
	}
}

func englishDoc() *domain.Document {
	d := domain.NewDocument("lease.txt", "...")
	d.ID = "doc1"
	d.Language = "en"
	return d
}

func TestAnswer_SpanishQuestionEnglishDocument(t *testing.T) {
	retriever := &fakeRetriever{matches: []vectorindex.Match{
		match(2, 0.82, "The notice period is 30 days."),
		match(0, 0.55, "This lease starts on 1 May."),
	}}
	gen := &fakeGenerator{reply: "The notice period is 30 days."}
	tr := &dictTranslator{table: map[string]string{
		"es:en:¿Cuál es el plazo de preaviso?": "What is the notice period?",
		"en:es:The notice period is 30 days.":  "El plazo de preaviso es de 30 días.",
	}}
	o := New(retriever, gen, tr, fixedDetector("es"), langdetect.DefaultCatalog(), Options{TopK: 4, MinSimilarity: 0.3})

	ans, err := o.Answer(context.Background(), Question{
		Text:             "¿Cuál es el plazo de preaviso?",
		Document:         englishDoc(),
		ResponseLanguage: "es",
	})
	require.NoError(t, err)

	assert.Equal(t, "What is the notice period?", retriever.gotText)
	assert.Equal(t, "doc1", retriever.gotDoc)
	assert.Equal(t, 4, retriever.gotK)
	assert.Equal(t, []string{"es→en", "en→es"}, tr.calls)

	assert.Equal(t, "El plazo de preaviso es de 30 días.", ans.Text)
	assert.Equal(t, "es", ans.Language)
	assert.Equal(t, "es", ans.QuestionLanguage)
	assert.Empty(t, ans.Warnings)

	require.Len(t, ans.Sources, 2)
	assert.Equal(t, 2, ans.Sources[0].ChunkIndex)
	assert.Equal(t, float32(0.82), ans.Sources[0].Similarity)
	assert.Equal(t, "doc1", ans.Sources[0].DocumentID)

	require.Len(t, gen.messages, 2)
	assert.Equal(t, "system", gen.messages[0].Role)
	assert.Contains(t, gen.messages[0].Content, "English")
	assert.Contains(t, gen.messages[1].Content, "Context 1:")
	assert.Contains(t, gen.messages[1].Content, "Context 2:")
	assert.Contains(t, gen.messages[1].Content, "What is the notice period?")
	assert.Less(t, strings.Index(gen.messages[1].Content, "30 days"), strings.Index(gen.messages[1].Content, "1 May"))
}

func TestAnswer_SameLanguageSkipsTranslation(t *testing.T) {
	tr := &dictTranslator{}
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		&fakeGenerator{reply: "answer"}, tr, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	ans, err := o.Answer(context.Background(), Question{Text: "question?", Document: englishDoc(), ResponseLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, "answer", ans.Text)
	assert.Empty(t, tr.calls)
}

func TestAnswer_ReportsModelAndTokens(t *testing.T) {
	gen := &meteredGenerator{completion: llm.Completion{Text: " answer ", Model: "gpt-4o-mini", TokensUsed: 321}}
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		gen, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	ans, err := o.Answer(context.Background(), Question{Text: "question?", Document: englishDoc()})
	require.NoError(t, err)
	assert.Equal(t, "answer", ans.Text)
	assert.Equal(t, "gpt-4o-mini", ans.Model)
	assert.Equal(t, 321, ans.TokensUsed)
	assert.NotEmpty(t, gen.messages)

	plain, err := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		&fakeGenerator{reply: "answer"}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{}).
		Answer(context.Background(), Question{Text: "question?", Document: englishDoc()})
	require.NoError(t, err)
	assert.Empty(t, plain.Model)
	assert.Zero(t, plain.TokensUsed)
}

func TestAnswer_NoContextBelowThreshold(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be called"}
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.1, "unrelated"), match(1, 0.05, "other")}},
		gen, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{MinSimilarity: 0.3})

	ans, err := o.Answer(context.Background(), Question{Text: "what about the moon?", Document: englishDoc(), ResponseLanguage: "en"})
	assert.ErrorIs(t, err, ErrNoContext)
	require.NotNil(t, ans)
	assert.Equal(t, "en", ans.QuestionLanguage)
	assert.Nil(t, gen.messages)
}

func TestAnswer_NoMatches(t *testing.T) {
	o := New(&fakeRetriever{}, &fakeGenerator{}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})
	_, err := o.Answer(context.Background(), Question{Text: "q", Document: englishDoc()})
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		&fakeGenerator{err: errors.New("503 service unavailable")}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	_, err := o.Answer(context.Background(), Question{Text: "q", Document: englishDoc()})
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "503")
}

func TestAnswer_EmptyCompletion(t *testing.T) {
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		&fakeGenerator{reply: "   "}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	_, err := o.Answer(context.Background(), Question{Text: "q", Document: englishDoc()})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestAnswer_GenerationTimeout(t *testing.T) {
	o := New(&fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}},
		&fakeGenerator{block: true}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(),
		Options{Timeout: 20 * time.Millisecond})

	_, err := o.Answer(context.Background(), Question{Text: "q", Document: englishDoc()})
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	o := New(&fakeRetriever{err: vectorindex.ErrNotIndexed}, &fakeGenerator{}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	_, err := o.Answer(context.Background(), Question{Text: "q", Document: englishDoc()})
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, vectorindex.ErrNotIndexed)
}

func TestAnswer_TranslationFailuresBecomeWarnings(t *testing.T) {
	retriever := &fakeRetriever{matches: []vectorindex.Match{match(0, 0.9, "text")}}
	o := New(retriever, &fakeGenerator{reply: "English answer"}, &dictTranslator{}, fixedDetector("fr"), langdetect.DefaultCatalog(), Options{})

	ans, err := o.Answer(context.Background(), Question{Text: "Quelle est la durée?", Document: englishDoc(), ResponseLanguage: "fr"})
	require.NoError(t, err)

	assert.Equal(t, "Quelle est la durée?", retriever.gotText)
	assert.Equal(t, "English answer", ans.Text)
	assert.Equal(t, "en", ans.Language)
	assert.Len(t, ans.Warnings, 2)
}

func TestAnswer_Validation(t *testing.T) {
	o := New(&fakeRetriever{}, &fakeGenerator{}, &dictTranslator{}, fixedDetector("en"), langdetect.DefaultCatalog(), Options{})

	_, err := o.Answer(context.Background(), Question{Text: "q"})
	assert.Error(t, err)
	_, err = o.Answer(context.Background(), Question{Text: "  ", Document: englishDoc()})
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short ", 200))
	long := strings.Repeat("é", 250)
	p := preview(long, 200)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Equal(t, 203, len([]rune(p)))
}

func TestBuildPrompt_Attribution(t *testing.T) {
	m := match(0, 0.9, "Clause text")
	m.Chunk.Page = 4
	m.Chunk.Section = "ARTICLE 5"
	p := buildPrompt("Why?", "German", []vectorindex.Match{m})

	assert.Contains(t, p, "Context 1: [Section: ARTICLE 5] [Page 4]\nClause text")
	assert.Contains(t, p, "Question: Why?")
	assert.Contains(t, p, "Respond in German")
}
