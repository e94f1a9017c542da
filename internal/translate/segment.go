package translate

import (
	"strings"
	"unicode"
)

// Segment is one piece of a long text. Sep is the whitespace that followed it
// in the original and is re-attached after translation.
type Segment struct {
	Text string
	Sep  string
}

// Split cuts text into segments of at most max runes, preferring paragraph and
// sentence boundaries. Joining Text+Sep of every segment gives back the input.
func Split(text string, max int) []Segment {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return []Segment{trailing(text)}
	}

	var segments []Segment
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen == 0 {
			return
		}
		segments = append(segments, trailing(cur.String()))
		cur.Reset()
		curLen = 0
	}

	for _, piece := range sentences(runes) {
		n := len(piece)
		if n > max {
			flush()
			for len(piece) > max {
				segments = append(segments, trailing(string(piece[:max])))
				piece = piece[max:]
			}
			n = len(piece)
		}
		if curLen+n > max {
			flush()
		}
		cur.WriteString(string(piece))
		curLen += n
	}
	flush()

	return segments
}

// sentences splits after terminal punctuation followed by whitespace, and after
// every newline. Each piece keeps its trailing whitespace.
func sentences(runes []rune) [][]rune {
	var out [][]rune
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		boundary := r == '\n'
		if isTerminal(r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			boundary = true
		}
		if !boundary {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		out = append(out, runes[start:j])
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, runes[start:])
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '।', '؟':
		return true
	}
	return false
}

func trailing(s string) Segment {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
	return Segment{Text: trimmed, Sep: s[len(trimmed):]}
}
