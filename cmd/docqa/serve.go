package main

import (
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docqa/internal/app"
	"docqa/internal/config"
)

var (
	servePort   int
	servePublic bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface and HTTP API",
	Long: `Starts the HTTP server with the browser UI at / and the JSON API under /api.
Binds to 127.0.0.1 unless --public (or APP_PUBLIC=true) is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default APP_PORT or 7860)")
	serveCmd.Flags().BoolVar(&servePublic, "public", false, "listen on all interfaces")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if servePort > 0 {
			c.Port = servePort
		}
		if servePublic {
			c.Public = true
		}
	})
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := app.NewServer(a, cfg.Addr())

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return a.RunSweeper(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("👋 Bye")
	return nil
}
