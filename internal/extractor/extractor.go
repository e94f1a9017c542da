package extractor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrExtraction        = errors.New("extraction failed")
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrExtraction)
	ErrTooLarge          = fmt.Errorf("%w: file too large", ErrExtraction)
	ErrEmpty             = fmt.Errorf("%w: empty file", ErrExtraction)
)

// Result is the text produced by one extraction method.
type Result struct {
	Text       string
	Method     string
	PageStarts []int // rune offset of each page, PDF only
	Pages      int
}

// Method is one way of turning file bytes into text.
type Method interface {
	Name() string
	Extract(ctx context.Context, data []byte) (*Result, error)
}

// Extractor runs the method chain registered for a file extension.
type Extractor struct {
	maxSize int64
	chains  map[string][]Method
}

// New returns an Extractor with the default chains for .pdf, .docx, .doc and .txt.
func New(maxSize int64) *Extractor {
	e := &Extractor{maxSize: maxSize, chains: make(map[string][]Method)}
	e.Register(".pdf", PDFPages{}, PDFReader{}, PDFRepair{})
	e.Register(".docx", DOCXParser{}, DOCXRaw{})
	e.Register(".doc", DOCXParser{}, DOCBinary{})
	e.Register(".txt", UTF8Text{}, UTF16Text{}, CharmapText{Charset: "windows-1252"}, CharmapText{Charset: "iso-8859-1"})
	return e
}

// Register replaces the chain for ext. Methods are tried in the given order.
func (e *Extractor) Register(ext string, methods ...Method) {
	e.chains[strings.ToLower(ext)] = methods
}

// Supported lists the registered extensions.
func (e *Extractor) Supported() []string {
	exts := make([]string, 0, len(e.chains))
	for ext := range e.chains {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (e *Extractor) IsSupported(name string) bool {
	_, ok := e.chains[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (e *Extractor) MaxSize() int64 {
	return e.maxSize
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if e.maxSize > 0 && info.Size() > e.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, info.Size(), e.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return e.Extract(ctx, filepath.Base(path), data)
}

// Extract returns the first non-empty result of the chain for name's extension.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(name))
	chain, ok := e.chains[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if e.maxSize > 0 && int64(len(data)) > e.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), e.maxSize)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var errs []error
	for _, m := range chain {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}

		res, err := m.Extract(ctx, data)
		if err == nil && (res == nil || strings.TrimSpace(res.Text) == "") {
			err = errors.New("no text")
		}
		if err != nil {
			log.Printf("⚠️  [%s] %s: %v", m.Name(), name, err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
			continue
		}

		res.Method = m.Name()
		log.Printf("📄 [%s] %s: %d characters", m.Name(), name, len([]rune(res.Text)))
		return res, nil
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, name, errors.Join(errs...))
}

// clean normalises line endings and drops NUL bytes.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\x00", "")
}
