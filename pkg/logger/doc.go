// Package logger provides the structured logging interface used across ttscraper.
//
// It wraps zerolog. Console output is colorized and written to stderr so that
// command results on stdout stay machine readable. When a log file is
// configured, entries are also written there with size-based rotation.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("input", "alice").Info("Scrape started")
//
// Components take a Logger explicitly; tests pass NewTestLogger() or
// NewNopLogger().
package logger
