package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const documentPart = "word/document.xml"

// DOCXParser walks word/document.xml. It emits one line per paragraph and one
// " | " separated line per table row.
type DOCXParser struct{}

func (DOCXParser) Name() string { return "docx-xml" }

func (DOCXParser) Extract(_ context.Context, data []byte) (*Result, error) {
	content, err := readDocumentPart(data)
	if err != nil {
		return nil, err
	}
	text, err := parseDocumentXML(content)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

// DOCXRaw pulls <w:t> runs out with a regexp. It tolerates XML that the
// decoder rejects.
type DOCXRaw struct{}

func (DOCXRaw) Name() string { return "docx-raw" }

var (
	wordTextRe = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	wordParaRe = regexp.MustCompile(`</w:p>`)
)

func (DOCXRaw) Extract(_ context.Context, data []byte) (*Result, error) {
	content, err := readDocumentPart(data)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, para := range wordParaRe.Split(string(content), -1) {
		var line strings.Builder
		for _, m := range wordTextRe.FindAllStringSubmatch(para, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return &Result{Text: strings.Join(lines, "\n")}, nil
}

func readDocumentPart(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", documentPart, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", documentPart, err)
		}
		return content, nil
	}
	return nil, errors.New("missing " + documentPart)
}

func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		out    []string
		para   strings.Builder
		cell   strings.Builder
		cells  []string
		inText bool
		inCell int
	)
	target := func() *strings.Builder {
		if inCell > 0 {
			return &cell
		}
		return &para
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				target().WriteString("\t")
			case "br", "cr":
				target().WriteString("\n")
			case "tc":
				inCell++
			}
		case xml.CharData:
			if inText {
				target().Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inCell > 0 {
					cell.WriteString(" ")
					continue
				}
				if s := strings.TrimSpace(para.String()); s != "" {
					out = append(out, s)
				}
				para.Reset()
			case "tc":
				inCell--
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "tr":
				if row := strings.Join(cells, " | "); strings.Trim(row, " |") != "" {
					out = append(out, row)
				}
				cells = nil
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
