package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"ttscraper/pkg/models"
)

var (
	// Scrape command flags
	scrapeType  string
	scrapeInput string
	count       int
	download    bool
	fileType    string
	outputDir   string
	concurrent  int
	keepHistory bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape a user, hashtag or trending feed",
	Long: `Scrape one feed and print its posts as JSON.

The feed is selected with --type (user, hashtag or trend) and --input
(a username or a hashtag; ignored for trend).`,
	Example: `  # Ten posts from a profile
  ttscraper scrape --type user --input someone

  # Thirty hashtag posts, exported to CSV in ./out
  ttscraper scrape --type hashtag --input cats --count 30 --filetype csv --filepath ./out

  # Trending feed with video downloads
  ttscraper scrape --type trend --download`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, models.ScrapeRequest{
			Type:  models.ParseScrapeType(scrapeType),
			Input: strings.TrimSpace(scrapeInput),
		})
	},
}

var trendCmd = &cobra.Command{
	Use:     "trend",
	Aliases: []string{"trending"},
	Short:   "Scrape the trending feed",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, models.ScrapeRequest{Type: models.ScrapeTypeTrend})
	},
}

var userCmd = &cobra.Command{
	Use:   "user <username>",
	Short: "Scrape a user's profile feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, models.ScrapeRequest{Type: models.ScrapeTypeUser, Input: strings.TrimSpace(args[0])})
	},
}

var hashtagCmd = &cobra.Command{
	Use:   "hashtag <tag>",
	Short: "Scrape a hashtag feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, models.ScrapeRequest{Type: models.ScrapeTypeHashtag, Input: strings.TrimSpace(args[0])})
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeType, "type", "t", "", "feed type: user, hashtag or trend")
	scrapeCmd.Flags().StringVarP(&scrapeInput, "input", "i", "", "username or hashtag")
	scrapeCmd.MarkFlagRequired("type")

	for _, cmd := range []*cobra.Command{scrapeCmd, trendCmd, userCmd, hashtagCmd} {
		f := cmd.Flags()
		f.IntVarP(&count, "count", "n", 0, "number of posts to return (default from config, 10)")
		f.BoolVarP(&download, "download", "d", false, "download each post's video (only user feeds carry video URLs)")
		f.StringVar(&fileType, "filetype", "", "export format: json, csv, all or na")
		f.StringVar(&outputDir, "filepath", "", "directory for exports and downloads")
		f.IntVar(&concurrent, "concurrent", 5, "concurrent video downloads")
		f.BoolVar(&keepHistory, "history", true, "record this scrape in the history file")
		rootCmd.AddCommand(cmd)
	}
}

func runScrape(cmd *cobra.Command, req models.ScrapeRequest) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		printResponse(failure(err))
		return err
	}

	req.Count = count
	req.Download = download

	out, err := newApp(cfg, log).run(cmd.Context(), req)
	if err != nil {
		log.WithError(err).ErrorWithFields("Scrape failed", map[string]interface{}{
			"type":  req.Type,
			"input": req.Input,
		})
		printResponse(failure(err))
		return fmt.Errorf("scrape failed: %w", err)
	}

	return printResponse(success(out))
}
