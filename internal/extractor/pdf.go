package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pageSeparator = "\n\n"

// PDFPages extracts plain text page by page and records page offsets.
type PDFPages struct{}

func (PDFPages) Name() string { return "pdf-pages" }

func (PDFPages) Extract(ctx context.Context, data []byte) (res *Result, err error) {
	defer recoverParser(&err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var (
		buf    strings.Builder
		starts []int
		offset int
	)
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// an unreadable page still gets a start offset so later pages keep their numbers
		var text string
		if p := r.Page(i); !p.V.IsNull() {
			text, err = p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i, err)
			}
			text = strings.TrimSpace(clean(text))
		}

		if buf.Len() > 0 {
			buf.WriteString(pageSeparator)
			offset += utf8.RuneCountInString(pageSeparator)
		}
		starts = append(starts, offset)
		buf.WriteString(text)
		offset += utf8.RuneCountInString(text)
	}

	return &Result{Text: buf.String(), PageStarts: starts, Pages: total}, nil
}

// PDFReader reads the whole content stream at once. It copes with files whose
// page tree is damaged but whose content is intact.
type PDFReader struct{}

func (PDFReader) Name() string { return "pdf-reader" }

func (PDFReader) Extract(_ context.Context, data []byte) (res *Result, err error) {
	defer recoverParser(&err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("plain text: %w", err)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	return &Result{Text: strings.TrimSpace(clean(string(b))), Pages: r.NumPage()}, nil
}

// PDFRepair rewrites the file with pdfcpu in relaxed mode and extracts again.
type PDFRepair struct{}

func (PDFRepair) Name() string { return "pdfcpu-repair" }

func (PDFRepair) Extract(ctx context.Context, data []byte) (*Result, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return PDFPages{}.Extract(ctx, out.Bytes())
}

// recoverParser turns a panic inside a third-party parser into an error.
func recoverParser(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("parser panic: %v", r)
	}
}
