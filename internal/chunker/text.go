package chunker

import (
	"fmt"
	"log"
	"strconv"
)

// TextChunker splits plain text into fixed-size windows with overlap.
type TextChunker struct {
	config Config
}

func NewTextChunker(config Config) *TextChunker {
	return &TextChunker{config: config}
}

func (s *TextChunker) Name() string {
	return "size"
}

// Chunk splits content into windows of MaxChunkSize runes, each starting
// MaxChunkSize-Overlap runes after the previous one. The last window may be shorter.
func (s *TextChunker) Chunk(content, source string) ([]Chunk, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(content)
	if len(runes) == 0 {
		return nil, nil
	}

	step := s.config.MaxChunkSize - s.config.Overlap
	var chunks []Chunk

	for i := 0; i < len(runes); i += step {
		end := i + s.config.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, CreateChunk(source, len(chunks), i, end, string(runes[i:end])))

		if end >= len(runes) {
			break
		}
	}

	log.Printf("✅ [%s] Created %d chunks from %d characters", s.Name(), len(chunks), len(runes))
	return chunks, nil
}

// CreateChunk builds a chunk with an id derived from its source and position.
func CreateChunk(source string, index, start, end int, text string) Chunk {
	return Chunk{
		ID:     fmt.Sprintf("%s-%05d", source, index),
		Index:  index,
		Text:   text,
		Source: source,
		Start:  start,
		End:    end,
		Metadata: map[string]string{
			"start": strconv.Itoa(start),
			"end":   strconv.Itoa(end),
		},
	}
}

// Reassemble joins chunks back into the source text, dropping overlaps.
func Reassemble(chunks []Chunk) string {
	var out []rune
	covered := 0
	for _, c := range chunks {
		r := []rune(c.Text)
		skip := covered - c.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(r) {
			out = append(out, r[skip:]...)
		}
		if c.End > covered {
			covered = c.End
		}
	}
	return string(out)
}
