package chunker

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid chunker config")

// Chunk is a contiguous slice of a source text. Offsets are in runes.
type Chunk struct {
	ID       string            // document id + index
	Index    int               // position in the document
	Text     string            // exact slice content[Start:End]
	Source   string            // document id
	Start    int               // first rune, inclusive
	End      int               // last rune, exclusive
	Page     int               // 1-based page, 0 if unknown
	Section  string            // nearest preceding heading
	Metadata map[string]string // extra attributes
}

// Chunker splits content into chunks.
type Chunker interface {
	Chunk(content, source string) ([]Chunk, error)

	// Name is used in logs.
	Name() string
}

type Config struct {
	MaxChunkSize int // chunk length in runes
	Overlap      int // shared runes between neighbours
}

func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size %d must be positive", ErrInvalidConfig, c.MaxChunkSize)
	}
	if c.Overlap <= 0 || c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [1, %d)", ErrInvalidConfig, c.Overlap, c.MaxChunkSize)
	}
	return nil
}
