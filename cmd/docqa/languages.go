package main

import (
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/extractor"
	"docqa/internal/langdetect"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported answer languages and document formats",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		catalog := langdetect.DefaultCatalog()
		cmd.Println("Languages:")
		for _, code := range catalog.Codes() {
			l, _ := catalog.Lookup(code)
			cmd.Printf("  %-4s %-12s %s\n", l.Code, l.Name, l.Native)
		}
		cmd.Println()
		cmd.Printf("Formats: %s\n", strings.Join(extractor.New(0).Supported(), " "))
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
