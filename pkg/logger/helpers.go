package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRequest logs one served HTTP request at a level matching its status
func LogRequest(l Logger, method, path string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.InfoWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of one media download
func LogDownload(l Logger, input, postID string, success bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"input":   input,
		"post_id": postID,
		"success": success,
	})

	if err != nil {
		entry.WithError(err).Error("Download failed")
	} else if success {
		entry.Debug("Download completed")
	} else {
		entry.Warn("Download skipped")
	}
}

// LogScrapeSummary logs how many posts a scrape produced against what was asked
func LogScrapeSummary(l Logger, scrapeType, input string, requested, returned int) {
	l.InfoWithFields("Scrape completed", map[string]interface{}{
		"type":      scrapeType,
		"input":     input,
		"requested": requested,
		"returned":  returned,
	})
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}
