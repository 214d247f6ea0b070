package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ttscraper/pkg/models"
)

// FileType selects which export files are written
type FileType string

const (
	FileTypeJSON FileType = "json"
	FileTypeCSV  FileType = "csv"
	FileTypeAll  FileType = "all"
	FileTypeNone FileType = "na"
)

// ParseFileType normalizes s, returning FileTypeNone for anything unknown
func ParseFileType(s string) FileType {
	switch ft := FileType(strings.ToLower(strings.TrimSpace(s))); ft {
	case FileTypeJSON, FileTypeCSV, FileTypeAll:
		return ft
	default:
		return FileTypeNone
	}
}

var csvHeader = []string{
	"id", "text", "createTime", "authorName", "authorNickName",
	"webVideoUrl", "videoUrl", "diggCount", "shareCount", "playCount",
	"commentCount", "downloaded", "hashtags", "mentions",
}

// Exporter writes scrape results to <dir>/<input>_<unix>.<ext>
type Exporter struct {
	dir string
	now func() time.Time
}

// NewExporter creates an exporter writing into dir
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// Export writes the files selected by ft and returns their paths
func (e *Exporter) Export(result *models.ScrapeResult, input string, ft FileType) ([]string, error) {
	var paths []string

	if ft == FileTypeJSON || ft == FileTypeAll {
		p, err := e.ExportJSON(result, input)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if ft == FileTypeCSV || ft == FileTypeAll {
		p, err := e.ExportCSV(result, input)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	return paths, nil
}

func (e *Exporter) path(input, ext string) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("%s_%d.%s", safeName(input), e.now().Unix(), ext)
	return filepath.Join(e.dir, name), nil
}

// ExportJSON writes the result as {"collector":[...]}
func (e *Exporter) ExportJSON(result *models.ScrapeResult, input string) (string, error) {
	filename, err := e.path(input, "json")
	if err != nil {
		return "", err
	}

	err = writeAtomic(filename, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})
	if err != nil {
		return "", fmt.Errorf("failed to export json: %w", err)
	}
	return filename, nil
}

// ExportCSV writes one row per record
func (e *Exporter) ExportCSV(result *models.ScrapeResult, input string) (string, error) {
	filename, err := e.path(input, "csv")
	if err != nil {
		return "", err
	}

	err = writeAtomic(filename, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, r := range result.Collector {
			if err := cw.Write(csvRow(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("failed to export csv: %w", err)
	}
	return filename, nil
}

func csvRow(r models.PostRecord) []string {
	tags := make([]string, 0, len(r.Hashtags))
	for _, h := range r.Hashtags {
		tags = append(tags, h.Name)
	}
	return []string{
		r.ID,
		r.Text,
		strconv.FormatInt(r.CreateTime, 10),
		r.AuthorMeta.Name,
		r.AuthorMeta.NickName,
		r.WebVideoURL,
		r.VideoURL,
		strconv.FormatInt(r.DiggCount, 10),
		strconv.FormatInt(r.ShareCount, 10),
		strconv.FormatInt(r.PlayCount, 10),
		strconv.FormatInt(r.CommentCount, 10),
		strconv.FormatBool(r.Downloaded),
		strings.Join(tags, ","),
		strings.Join(r.Mentions, ","),
	}
}
