package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"docqa/internal/domain"
)

const consoleHelp = `Commands:
  /upload <path>   load a document (a bare existing file path works too)
  /lang <code>     set the answer language
  /history         show this session's questions and answers
  /clear           drop the document and history
  /help            show this help
Anything else is asked as a question. Ctrl+C to exit.`

// Run reads commands and questions line by line from in until EOF or ctx is done.
func (a *App) Run(ctx context.Context, sessionID string, in io.Reader, out io.Writer) error {
	a.sessions.GetOrCreate(sessionID)
	fmt.Fprintln(out, consoleHelp)

	scanner := bufio.NewScanner(in)

	// long pasted questions
	const maxLineSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("stdin error: %w", err)
				}
				return nil
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			a.handleLine(ctx, sessionID, line, out)
		}
	}
}

func (a *App) handleLine(ctx context.Context, sessionID, line string, out io.Writer) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Fprintln(out, consoleHelp)
		return
	case "/upload":
		a.consoleUpload(ctx, sessionID, arg, out)
		return
	case "/lang":
		lang, err := a.SetLanguage(sessionID, arg)
		if err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return
		}
		fmt.Fprintf(out, "🌐 Answers will be in %s\n", a.catalog.Name(lang))
		return
	case "/clear":
		if err := a.Clear(sessionID); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return
		}
		fmt.Fprintln(out, "🗑️  Document cleared")
		return
	case "/history":
		history, err := a.History(sessionID)
		if err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			return
		}
		for i, t := range history {
			fmt.Fprintf(out, "%d. Q: %s\n   A: %s\n", i+1, t.Question, t.Answer)
		}
		return
	}

	// A bare path to an existing file is an upload.
	if info, err := os.Stat(line); err == nil && !info.IsDir() {
		a.consoleUpload(ctx, sessionID, line, out)
		return
	}

	turn, err := a.Ask(ctx, sessionID, line)
	if err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return
	}
	fmt.Fprint(out, FormatTurn(turn))
}

func (a *App) consoleUpload(ctx context.Context, sessionID, path string, out io.Writer) {
	if path == "" {
		fmt.Fprintln(out, "❌ usage: /upload <path>")
		return
	}
	info, err := a.UploadFile(ctx, sessionID, path)
	if err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return
	}
	fmt.Fprintf(out, "✅ %s: %d words, %d page(s), %d chunks, language %s\n",
		info.FileName, info.Words, info.Pages, info.Chunks, a.catalog.Name(info.Language))
}

// FormatTurn renders an answer with its sources for a terminal.
func FormatTurn(t *domain.Turn) string {
	var sb strings.Builder
	if t.NoContext {
		sb.WriteString("🔍 ")
	} else {
		sb.WriteString("🤖 ")
	}
	sb.WriteString(t.Answer)
	sb.WriteString("\n")

	for _, w := range t.Warnings {
		sb.WriteString(fmt.Sprintf("⚠️  %s\n", w))
	}
	if len(t.Sources) > 0 {
		sb.WriteString("\n📚 Sources:\n")
		for i, src := range t.Sources {
			sb.WriteString(fmt.Sprintf("  [%d] chunk %d (similarity %.2f)", i+1, src.ChunkIndex, src.Similarity))
			if src.Page > 0 {
				sb.WriteString(fmt.Sprintf(", page %d", src.Page))
			}
			if src.Section != "" {
				sb.WriteString(fmt.Sprintf(", %s", src.Section))
			}
			sb.WriteString("\n      " + strings.ReplaceAll(src.Preview, "\n", " ") + "\n")
		}
	}
	if t.ModelUsed != "" {
		sb.WriteString(fmt.Sprintf("\n🧮 %s, %d tokens\n", t.ModelUsed, t.TokensUsed))
	}
	sb.WriteString("\n")
	return sb.String()
}
