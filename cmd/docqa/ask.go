package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/app"
)

const askSession = "cli"

var (
	askFile string
	askLang string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question about a document",
	Long: `Loads the document, answers one question and exits.

  docqa ask --file contract.pdf --lang es "¿Cuál es el plazo de preaviso?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document to ask about (required)")
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "", "answer language code")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	_ = askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("question is empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Session(askSession)
	if askLang != "" {
		if _, err := a.SetLanguage(askSession, askLang); err != nil {
			return err
		}
	}
	if _, err := a.UploadFile(ctx, askSession, askFile); err != nil {
		return err
	}

	turn, err := a.Ask(ctx, askSession, question)
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(turn, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(app.FormatTurn(turn))
	return nil
}
