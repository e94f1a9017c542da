package rag

import (
	"fmt"
	"strings"

	"docqa/internal/vectorindex"
)

func systemPrompt(language string) string {
	var buf strings.Builder

	buf.WriteString("You are a helpful multilingual document assistant. ")
	buf.WriteString(fmt.Sprintf("You answer questions about an uploaded document accurately and clearly in %s.\n\n", language))
	buf.WriteString("Key guidelines:\n")
	buf.WriteString("- Answer based only on the provided document context\n")
	buf.WriteString("- If the context does not contain enough information, say so clearly\n")
	buf.WriteString("- Do not invent facts, figures or legal conclusions\n")
	buf.WriteString("- Cite specific parts of the document when relevant\n")
	buf.WriteString(fmt.Sprintf("- Respond in %s\n", language))

	return buf.String()
}

// buildPrompt lists the retrieved chunks as numbered context blocks followed by the question.
func buildPrompt(question, language string, matches []vectorindex.Match) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("Based on the following context from the uploaded document, answer the user's question in %s.\n\n", language))
	buf.WriteString("Context:\n")
	for i, m := range matches {
		buf.WriteString(fmt.Sprintf("Context %d:", i+1))
		if m.Chunk.Section != "" {
			buf.WriteString(fmt.Sprintf(" [Section: %s]", m.Chunk.Section))
		}
		if m.Chunk.Page > 0 {
			buf.WriteString(fmt.Sprintf(" [Page %d]", m.Chunk.Page))
		}
		buf.WriteString("\n")
		buf.WriteString(strings.TrimSpace(m.Chunk.Text))
		buf.WriteString("\n\n")
	}

	buf.WriteString("Question: ")
	buf.WriteString(strings.TrimSpace(question))
	buf.WriteString("\n\n")

	buf.WriteString("Instructions:\n")
	buf.WriteString("1. Answer based only on the information provided in the context\n")
	buf.WriteString("2. If the context doesn't contain enough information, say so clearly\n")
	buf.WriteString(fmt.Sprintf("3. Respond in %s\n", language))
	buf.WriteString("4. Be precise and include relevant details from the context\n\n")
	buf.WriteString("Answer:")

	return buf.String()
}

// preview returns the first n runes of text, marking a cut with "...".
func preview(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
