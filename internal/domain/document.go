package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/chunker"
)

const wordsPerPage = 250

// Document is an extracted and indexed upload. It is not modified after indexing.
type Document struct {
	ID         string
	FileName   string
	Text       string
	Language   string
	Method     string
	PageCount  int
	Chunks     []chunker.Chunk
	UploadedAt time.Time
}

func NewDocument(fileName, text string) *Document {
	return &Document{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Text:       text,
		UploadedAt: time.Now(),
	}
}

// Info is a summary of a Document without its text and chunks.
type Info struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Language   string    `json:"language"`
	Method     string    `json:"method"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	Characters int       `json:"characters"`
	Words      int       `json:"words"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (d *Document) Info() Info {
	words := len(strings.Fields(d.Text))
	pages := d.PageCount
	if pages == 0 {
		pages = EstimatePages(words)
	}
	return Info{
		ID:         d.ID,
		FileName:   d.FileName,
		Language:   d.Language,
		Method:     d.Method,
		Pages:      pages,
		Chunks:     len(d.Chunks),
		Characters: len([]rune(d.Text)),
		Words:      words,
		UploadedAt: d.UploadedAt,
	}
}

// EstimatePages approximates a page count for formats without page boundaries.
func EstimatePages(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + wordsPerPage - 1) / wordsPerPage
}
