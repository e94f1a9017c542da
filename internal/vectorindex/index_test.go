package vectorindex

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
)

const dims = 64

// bagOfWords hashes lower-cased words into a fixed vector. The last dimension
// is a constant so no vector is ever zero.
func bagOfWords(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%(dims-1)]++
	}
	v[dims-1] = 0.1
	return v, nil
}

func chunks(docID string, texts ...string) []chunker.Chunk {
	out := make([]chunker.Chunk, len(texts))
	pos := 0
	for i, text := range texts {
		n := len([]rune(text))
		out[i] = chunker.CreateChunk(docID, i, pos, pos+n, text)
		pos += n
	}
	return out
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)

	require.NoError(t, ix.Add(ctx, "d1", chunks("d1",
		"The tenant pays rent on the first day of each month.",
		"The landlord repairs the heating system.",
		"Pets are not allowed in the apartment.",
	)))
	assert.Equal(t, 3, ix.Count("d1"))

	matches, err := ix.Query(ctx, "d1", "when is rent paid each month", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Chunk.Index)
	assert.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)
	assert.Equal(t, "d1", matches[0].Chunk.Source)
	assert.Contains(t, matches[0].Chunk.Text, "rent")
}

func TestQuery_ScopedToDocument(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)

	require.NoError(t, ix.Add(ctx, "a", chunks("a", "apples and pears", "bananas")))
	require.NoError(t, ix.Add(ctx, "b", chunks("b", "apples apples apples", "apples and pears")))

	matches, err := ix.Query(ctx, "a", "apples", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "a", m.Chunk.Source)
	}
	assert.Equal(t, []string{"a", "b"}, ix.Documents())
}

func TestQuery_TiesKeepChunkOrder(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)

	require.NoError(t, ix.Add(ctx, "d", chunks("d", "same words", "other", "same words", "same words")))

	matches, err := ix.Query(ctx, "d", "same words", 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Chunk.Index)
	assert.Equal(t, 2, matches[1].Chunk.Index)
	assert.Equal(t, 3, matches[2].Chunk.Index)
}

func TestQuery_KLargerThanDocument(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)
	require.NoError(t, ix.Add(ctx, "d", chunks("d", "one", "two")))

	matches, err := ix.Query(ctx, "d", "one", 50)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)

	_, err := ix.Query(ctx, "missing", "q", 3)
	assert.ErrorIs(t, err, ErrNotIndexed)

	require.NoError(t, ix.Add(ctx, "d", chunks("d", "one")))
	_, err = ix.Query(ctx, "d", "q", 0)
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)
	require.NoError(t, ix.Add(ctx, "d", chunks("d", "one", "two")))

	require.NoError(t, ix.Clear("d"))
	assert.Zero(t, ix.Count("d"))
	_, err := ix.Query(ctx, "d", "one", 1)
	assert.ErrorIs(t, err, ErrNotIndexed)

	assert.NoError(t, ix.Clear("never-added"))
}

func TestAdd_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)
	require.NoError(t, ix.Add(ctx, "d", chunks("d", "one", "two", "three")))
	require.NoError(t, ix.Add(ctx, "d", chunks("d", "four")))
	assert.Equal(t, 1, ix.Count("d"))
}

func TestAdd_EmbeddingFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	failing := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	ix := New(nil, failing)

	err := ix.Add(ctx, "d", chunks("d", "one", "two"))
	require.Error(t, err)
	_, err = ix.Query(ctx, "d", "one", 1)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestAdd_Validation(t *testing.T) {
	ix := New(nil, bagOfWords)
	assert.Error(t, ix.Add(context.Background(), "", chunks("x", "a")))
	assert.Error(t, ix.Add(context.Background(), "d", nil))
}

func TestPreservesChunkAttribution(t *testing.T) {
	ctx := context.Background()
	ix := New(nil, bagOfWords)

	cs := chunks("d", "Payment terms apply.", "Termination clause.")
	cs[1].Page = 3
	cs[1].Section = "7. TERMINATION"
	require.NoError(t, ix.Add(ctx, "d", cs))

	matches, err := ix.Query(ctx, "d", "termination clause", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	got := matches[0].Chunk
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, "7. TERMINATION", got.Section)
	assert.Equal(t, cs[1].Start, got.Start)
	assert.Equal(t, cs[1].End, got.End)
	assert.Equal(t, cs[1].ID, got.ID)
}

func TestOpen_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ix, err := Open(dir, bagOfWords)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, "d", chunks("d", "persisted chunk")))

	reopened, err := Open(dir, bagOfWords)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count("d"))

	matches, err := reopened.Query(ctx, "d", "persisted", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted chunk", matches[0].Chunk.Text)
}
