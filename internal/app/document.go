package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/extractor"
	"docqa/internal/session"
)

// Upload extracts, chunks and indexes a file for the session. On failure the
// session keeps its previous document, if any.
func (a *App) Upload(ctx context.Context, sessionID, fileName string, data []byte) (*domain.Info, error) {
	s, err := a.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.BeginIndexing(); err != nil {
		return nil, err
	}

	doc, err := a.processDocument(ctx, fileName, data)
	if err != nil {
		s.FailIndexing()
		log.Printf("❌ Processing %s failed: %v", fileName, err)
		return nil, err
	}

	if old := s.FinishIndexing(doc); old != nil {
		if err := a.index.Clear(old.ID); err != nil {
			log.Printf("⚠️  Failed to clear replaced document %s: %v", old.ID, err)
		}
	}

	info := doc.Info()
	return &info, nil
}

// UploadFile is Upload for a file on disk.
func (a *App) UploadFile(ctx context.Context, sessionID, path string) (*domain.Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extractor.ErrExtraction, err)
	}
	if limit := a.extractor.MaxSize(); limit > 0 && st.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", extractor.ErrTooLarge, st.Size(), limit)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extractor.ErrExtraction, err)
	}
	return a.Upload(ctx, sessionID, filepath.Base(path), data)
}

// processDocument runs extract → detect → chunk → index.
func (a *App) processDocument(ctx context.Context, fileName string, data []byte) (*domain.Document, error) {
	start := time.Now()

	res, err := a.extractor.Extract(ctx, fileName, data)
	if err != nil {
		return nil, err
	}
	log.Printf("📄 File loaded: %s, %d bytes via %s", fileName, len(data), res.Method)

	doc := domain.NewDocument(fileName, res.Text)
	doc.Method = res.Method
	doc.PageCount = res.Pages
	doc.Language = a.detector.Detect(res.Text)
	log.Printf("🌐 Detected language: %s", a.catalog.Name(doc.Language))

	chunks, err := a.chunker.Chunk(res.Text, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	chunker.Annotate(chunks, res.Text, res.PageStarts)
	doc.Chunks = chunks
	log.Printf("📦 Split into %d chunks", len(chunks))

	if err := a.index.Add(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	log.Printf("✅ %s ready in %s", fileName, time.Since(start).Round(time.Millisecond))
	return doc, nil
}

// Clear drops the session's document, its vectors and the chat history.
func (a *App) Clear(sessionID string) error {
	s, err := a.session(sessionID)
	if err != nil {
		return err
	}
	old, err := s.Clear()
	if err != nil {
		return err
	}
	if old != nil {
		if err := a.index.Clear(old.ID); err != nil {
			return err
		}
		log.Printf("🗑️  Cleared %s", old.FileName)
	}
	return nil
}

// TranslateDocument returns the full text of the active document in the given
// language. Paragraphs are translated in parallel and cached individually.
func (a *App) TranslateDocument(ctx context.Context, sessionID, target string) (string, error) {
	s, err := a.session(sessionID)
	if err != nil {
		return "", err
	}
	doc := s.Document()
	if doc == nil {
		return "", session.ErrNoDocument
	}
	lang, ok := a.catalog.Normalize(target)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, target)
	}
	if lang == doc.Language {
		return doc.Text, nil
	}

	paragraphs := strings.Split(doc.Text, "\n\n")
	translated, err := a.translator.TranslateBatch(ctx, paragraphs, doc.Language, lang)
	if err != nil {
		return "", err
	}
	return strings.Join(translated, "\n\n"), nil
}
