package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"ttscraper/pkg/history"
	"ttscraper/pkg/models"
)

// historyCmd lists previous scrapes
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previous scrapes",
	Long: `Show every feed scraped so far with its running post count, the time
of the last scrape and where its export was written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			printResponse(failure(err))
			return err
		}

		items, err := store.List()
		if err != nil {
			printResponse(failure(err))
			return err
		}
		return printResponse(success(items))
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <type> [input]",
	Short: "Forget one feed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}

		input := ""
		if len(args) == 2 {
			input = args[1]
		}
		scrapeType := models.ParseScrapeType(args[0])
		if err := store.Remove(string(scrapeType), input); err != nil {
			return err
		}
		return printResponse(success(history.Key(string(scrapeType), input)))
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the history file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		return printResponse(success(store.Path()))
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(cfg.History.Directory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}
