package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	errBinary = errors.New("binary content")
)

// UTF8Text accepts valid UTF-8, with or without a BOM.
type UTF8Text struct{}

func (UTF8Text) Name() string { return "utf-8" }

func (UTF8Text) Extract(_ context.Context, data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, bomUTF8)
	if !utf8.Valid(data) {
		return nil, errors.New("invalid utf-8")
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, errBinary
	}
	return &Result{Text: clean(string(data))}, nil
}

// UTF16Text decodes files that start with a UTF-16 byte order mark.
type UTF16Text struct{}

func (UTF16Text) Name() string { return "utf-16" }

func (UTF16Text) Extract(_ context.Context, data []byte) (*Result, error) {
	if !bytes.HasPrefix(data, bomUTF16LE) && !bytes.HasPrefix(data, bomUTF16BE) {
		return nil, errors.New("no utf-16 byte order mark")
	}
	decoded, err := xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode utf-16: %w", err)
	}
	return &Result{Text: clean(string(decoded))}, nil
}

// CharmapText decodes single-byte legacy encodings.
type CharmapText struct {
	Charset string
}

func (c CharmapText) Name() string { return c.Charset }

func (c CharmapText) Extract(_ context.Context, data []byte) (*Result, error) {
	var enc encoding.Encoding
	switch c.Charset {
	case "windows-1252":
		enc = charmap.Windows1252
	case "iso-8859-1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unknown charset %q", c.Charset)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, errBinary
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Charset, err)
	}
	return &Result{Text: clean(string(decoded))}, nil
}
