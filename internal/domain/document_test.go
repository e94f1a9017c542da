package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	a := NewDocument("a.txt", "hello")
	b := NewDocument("a.txt", "hello")

	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.UploadedAt.IsZero())
}

func TestEstimatePages(t *testing.T) {
	assert.Equal(t, 0, EstimatePages(0))
	assert.Equal(t, 1, EstimatePages(1))
	assert.Equal(t, 1, EstimatePages(250))
	assert.Equal(t, 2, EstimatePages(251))
}

func TestDocumentInfo(t *testing.T) {
	doc := NewDocument("contract.docx", strings.Repeat("word ", 300))
	doc.Language = "en"

	info := doc.Info()
	assert.Equal(t, "contract.docx", info.FileName)
	assert.Equal(t, 300, info.Words)
	assert.Equal(t, 2, info.Pages)

	doc.PageCount = 7
	assert.Equal(t, 7, doc.Info().Pages)
}
