package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"docqa/internal/chunker"
)

var ErrNotIndexed = errors.New("document is not indexed")

const metaDocumentID = "document_id"

// Match is one retrieved chunk and its cosine similarity to the query.
type Match struct {
	Chunk      chunker.Chunk
	Similarity float32
}

// Index stores chunk embeddings in one chromem collection per document.
type Index struct {
	db          *chromem.DB
	embed       chromem.EmbeddingFunc
	concurrency int
}

// New wraps db. A nil db gives an in-memory index.
func New(db *chromem.DB, embed chromem.EmbeddingFunc) *Index {
	if db == nil {
		db = chromem.NewDB()
	}
	return &Index{db: db, embed: embed, concurrency: runtime.NumCPU()}
}

// Open returns an index persisted under path, or an in-memory one when path is empty.
func Open(path string, embed chromem.EmbeddingFunc) (*Index, error) {
	if path == "" {
		return New(nil, embed), nil
	}
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	log.Printf("📦 Vector database at %s (%d collections)", path, len(db.ListCollections()))
	return New(db, embed), nil
}

const collectionPrefix = "doc-"

func collectionName(docID string) string {
	return collectionPrefix + docID
}

// Add embeds chunks and stores them under docID, replacing anything indexed
// for it before. On failure nothing is left behind for docID.
func (ix *Index) Add(ctx context.Context, docID string, chunks []chunker.Chunk) error {
	if docID == "" {
		return errors.New("document id is empty")
	}
	if len(chunks) == 0 {
		return errors.New("no chunks to index")
	}

	name := collectionName(docID)
	if err := ix.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	coll, err := ix.db.CreateCollection(name, map[string]string{metaDocumentID: docID}, ix.embed)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:       ch.ID,
			Content:  ch.Text,
			Metadata: chunkMetadata(docID, ch),
		}
	}

	if err := coll.AddDocuments(ctx, docs, ix.concurrency); err != nil {
		_ = ix.db.DeleteCollection(name)
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	log.Printf("📦 Indexed %d chunks for document %s", len(chunks), docID)
	return nil
}

// Query returns up to k chunks of docID most similar to text, best first.
// Equal similarities keep chunk order.
func (ix *Index) Query(ctx context.Context, docID, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	coll := ix.db.GetCollection(collectionName(docID), ix.embed)
	if coll == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, docID)
	}
	n := coll.Count()
	if n == 0 {
		return nil, nil
	}

	// Rank everything so ties can be ordered by chunk index before truncating.
	results, err := coll.Query(ctx, text, n, map[string]string{metaDocumentID: docID}, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if r.Metadata[metaDocumentID] != docID {
			continue
		}
		matches = append(matches, Match{
			Chunk:      chunkFromResult(r),
			Similarity: r.Similarity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Clear drops everything indexed for docID. Unknown ids are a no-op.
func (ix *Index) Clear(docID string) error {
	if err := ix.db.DeleteCollection(collectionName(docID)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Count returns the number of chunks indexed for docID.
func (ix *Index) Count(docID string) int {
	coll := ix.db.GetCollection(collectionName(docID), ix.embed)
	if coll == nil {
		return 0
	}
	return coll.Count()
}

// Documents lists the ids of every indexed document.
func (ix *Index) Documents() []string {
	var ids []string
	for name := range ix.db.ListCollections() {
		if id, ok := strings.CutPrefix(name, collectionPrefix); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func chunkMetadata(docID string, ch chunker.Chunk) map[string]string {
	m := map[string]string{
		metaDocumentID: docID,
		"index":        strconv.Itoa(ch.Index),
		"start":        strconv.Itoa(ch.Start),
		"end":          strconv.Itoa(ch.End),
		"source":       ch.Source,
	}
	if ch.Page > 0 {
		m["page"] = strconv.Itoa(ch.Page)
	}
	if ch.Section != "" {
		m["section"] = ch.Section
	}
	return m
}

func chunkFromResult(r chromem.Result) chunker.Chunk {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(r.Metadata[key])
		return n
	}
	return chunker.Chunk{
		ID:      r.ID,
		Index:   atoi("index"),
		Text:    r.Content,
		Source:  r.Metadata["source"],
		Start:   atoi("start"),
		End:     atoi("end"),
		Page:    atoi("page"),
		Section: r.Metadata["section"],
	}
}
