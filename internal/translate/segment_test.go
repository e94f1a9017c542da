package translate

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func join(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteString(s.Text + s.Sep)
	}
	return sb.String()
}

func TestSplit_ShortText(t *testing.T) {
	segs := Split("Hello world.\n", 100)
	assert.Equal(t, []Segment{{Text: "Hello world.", Sep: "\n"}}, segs)
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	text := "One two three. Four five six! Seven eight nine? Ten."
	segs := Split(text, 20)

	assert.Equal(t, text, join(segs))
	for _, s := range segs {
		assert.LessOrEqual(t, len([]rune(s.Text)), 20)
		assert.NotEmpty(t, s.Text)
	}
	assert.Equal(t, "One two three.", segs[0].Text)
}

func TestSplit_HardSplitsLongSentence(t *testing.T) {
	text := strings.Repeat("ж", 25)
	segs := Split(text, 10)

	assert.Len(t, segs, 3)
	assert.Equal(t, text, join(segs))
}

func TestSplit_PacksSmallSentences(t *testing.T) {
	text := "A. B. C. D. E. F."
	segs := Split(text, 8)
	assert.Equal(t, text, join(segs))
	assert.Less(t, len(segs), 6)
}
