package chunker

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is a section title found in the source text. Offset is in runes.
type Heading struct {
	Title  string
	Level  int
	Offset int
}

var numberedHeadingRe = regexp.MustCompile(`^(?:(?i:section|article|chapter|part|clause)\s+\w+|\d+(?:\.\d+)*\.?)\s+\p{Lu}`)

// FindHeadings returns markdown headings and plain-text heading lines sorted by offset.
func FindHeadings(content string) []Heading {
	src := []byte(content)
	byOffset := make(map[int]Heading)

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(extractText(heading, src))
		if title == "" {
			return ast.WalkSkipChildren, nil
		}
		start := heading.Lines().At(0).Start
		offset := utf8.RuneCount(src[:lineStart(src, start)])
		byOffset[offset] = Heading{Title: title, Level: heading.Level, Offset: offset}
		return ast.WalkSkipChildren, nil
	})

	runeOffset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if title, ok := plainHeading(line); ok {
			if _, dup := byOffset[runeOffset]; !dup {
				byOffset[runeOffset] = Heading{Title: title, Level: 0, Offset: runeOffset}
			}
		}
		runeOffset += utf8.RuneCountInString(line)
	}

	headings := make([]Heading, 0, len(byOffset))
	for _, h := range byOffset {
		headings = append(headings, h)
	}
	sort.Slice(headings, func(i, j int) bool { return headings[i].Offset < headings[j].Offset })
	return headings
}

// Annotate fills Page and Section on chunks. pageStarts holds the rune offset of
// every page in order and may be empty.
func Annotate(chunks []Chunk, content string, pageStarts []int) {
	headings := FindHeadings(content)

	for i := range chunks {
		c := &chunks[i]
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		if len(pageStarts) > 0 {
			c.Page = sort.Search(len(pageStarts), func(p int) bool { return pageStarts[p] > c.Start })
			if c.Page == 0 {
				c.Page = 1
			}
			c.Metadata["page"] = strconv.Itoa(c.Page)
		}

		if h, ok := sectionFor(headings, c.Start, c.End); ok {
			c.Section = h.Title
			c.Metadata["section"] = h.Title
		}
	}
}

// sectionFor picks the heading in force at start, or else the first one inside the chunk.
func sectionFor(headings []Heading, start, end int) (Heading, bool) {
	idx := sort.Search(len(headings), func(i int) bool { return headings[i].Offset > start })
	if idx > 0 {
		return headings[idx-1], true
	}
	if idx < len(headings) && headings[idx].Offset < end {
		return headings[idx], true
	}
	return Heading{}, false
}

func plainHeading(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 4 || utf8.RuneCountInString(line) > 80 {
		return "", false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") || strings.HasSuffix(line, ";") {
		return "", false
	}
	if numberedHeadingRe.MatchString(line) {
		return line, true
	}

	letters, upper := 0, 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 4 && upper == letters {
		return line, true
	}
	return "", false
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// extractText collects the text of a node and its descendants.
func extractText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
			continue
		}
		buf.WriteString(extractText(child, source))
	}
	return buf.String()
}
