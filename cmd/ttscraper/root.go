package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	baseURL     string
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ttscraper",
	Short: "Scrape public TikTok feeds into structured post records",
	Long: `ttscraper fetches a user profile, a hashtag page or the trending feed
and extracts the posts on it into JSON.

Each fetch is retried with a linear backoff. Results can be exported to
JSON or CSV, videos can be downloaded, and every scrape is recorded in a
local history file.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is ./.ttscraper.yaml or ~/.config/ttscraper/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
	pf.StringVar(&baseURL, "base-url", "", "site root to resolve feeds against")
	pf.StringVar(&userAgent, "user-agent", "", "fixed User-Agent header (default: random from the built-in pool)")
	pf.IntVar(&maxAttempts, "max-attempts", 3, "attempts per fetch before giving up")
	pf.DurationVar(&baseDelay, "base-delay", time.Second, "backoff unit; the wait after the k-th failure is k times this")

	rootCmd.SetVersionTemplate(`ttscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// flagMap collects the flags the user actually set, keyed the way config.MergeCommandLineFlags expects
func flagMap(flags *pflag.FlagSet) map[string]interface{} {
	m := make(map[string]interface{})
	flags.Visit(func(f *pflag.Flag) {
		var v interface{}
		var err error
		switch f.Name {
		case "max-attempts", "concurrent":
			v, err = flags.GetInt(f.Name)
		case "base-delay":
			v, err = flags.GetDuration(f.Name)
		case "history":
			v, err = flags.GetBool(f.Name)
		case "log-level", "base-url", "user-agent", "addr", "filepath", "filetype":
			v, err = flags.GetString(f.Name)
		default:
			return
		}
		if err == nil {
			m[f.Name] = v
		}
	})
	return m
}

// loadConfig resolves configuration for cmd and installs the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile, flagMap(cmd.Flags()))
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("command", cmd.Name())
	log.DebugWithFields("Configuration loaded", map[string]interface{}{
		"version":      version,
		"max_attempts": cfg.Fetch.MaxAttempts,
		"base_delay":   cfg.Fetch.BaseDelay.String(),
		"base_url":     cfg.Scrape.BaseURL,
	})
	return cfg, log, nil
}
