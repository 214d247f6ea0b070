package main

import (
	"github.com/spf13/cobra"
	"ttscraper/internal/server"
	"ttscraper/pkg/models"
)

var serveAddr string

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /scrape over HTTP",
	Long: `Start an HTTP service that accepts {"type","input","count"} on POST /scrape
and answers with the scraped collector.

Status codes: 400 for a missing or unknown type or a bad body, 502 when the site could
not be fetched, 422 when the page could not be parsed, 429 when a client
exceeds the configured request rate.`,
	Example: `  ttscraper serve --addr :10000`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// requests must name their type, so only the count has a default here
		s := newApp(cfg, log).engine(models.ScrapeRequest{Count: cfg.Scrape.DefaultCount})
		return server.New(s, cfg.Server, log).ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":10000", "listen address")
	rootCmd.AddCommand(serveCmd)
}
