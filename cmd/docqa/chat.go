package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docqa/internal/tui"
)

const chatSession = "local"

var (
	chatFile  string
	chatLang  string
	chatPlain bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a document in the terminal",
	Long: `Opens an interactive chat. Load a document with --file or with
/upload <path> once inside, then type questions.

Commands:
  /upload <path>   load a document
  /lang <code>     set the answer language
  /clear           drop the document and history
  Ctrl+C           quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "document to load on start")
	chatCmd.Flags().StringVarP(&chatLang, "lang", "l", "", "answer language code")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-based console instead of the full-screen UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// piped input cannot drive the full-screen UI
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		chatPlain = true
	}

	// the full-screen UI owns the terminal, so logs go to a file
	if !chatPlain {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.DataDir, "docqa.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.Session(chatSession)
	language := snap.Language
	if chatLang != "" {
		if language, err = a.SetLanguage(chatSession, chatLang); err != nil {
			return err
		}
	}

	if chatFile != "" {
		info, err := a.UploadFile(ctx, chatSession, chatFile)
		if err != nil {
			return err
		}
		cmd.Printf("✅ %s: %d chunks, language %s\n", info.FileName, info.Chunks, info.Language)
	}

	if chatPlain {
		return a.Run(ctx, chatSession, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	m := tui.New(ctx, a, chatSession, language)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
