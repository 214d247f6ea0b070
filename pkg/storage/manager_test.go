package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/models"
)

func TestManagerSaveVideo(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.False(t, manager.IsDownloaded("alice", "7301"))

	path, err := manager.SaveVideo(bytes.NewReader([]byte("video bytes")), "alice", "7301")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "alice", "7301.mp4"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	assert.True(t, manager.IsDownloaded("alice", "7301"))
}

func TestManagerFindsExistingFiles(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "bob"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "bob", "9.mp4"), []byte("x"), 0644))

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.True(t, manager.IsDownloaded("bob", "9"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "_etc_passwd", safeName("/etc/passwd"))
	assert.Equal(t, "__x", safeName("../x"))
	assert.Equal(t, "_", safeName("  "))
}

func fixedExporter(dir string) *Exporter {
	e := NewExporter(dir)
	e.now = func() time.Time { return time.Unix(1700000000, 0) }
	return e
}

func sampleResult() *models.ScrapeResult {
	rec := models.PostRecord{
		ID:         "1",
		Text:       "hello, world",
		AuthorMeta: models.AuthorMeta{Name: "alice"},
		Hashtags:   []models.Hashtag{{Name: "fyp"}, {Name: "cats"}},
		PlayCount:  42,
	}
	rec.Normalize()
	return models.NewScrapeResult([]models.PostRecord{rec})
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := fixedExporter(dir).ExportJSON(sampleResult(), "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alice_1700000000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.ScrapeResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Collector, 1)
	assert.Equal(t, "hello, world", decoded.Collector[0].Text)
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := fixedExporter(dir).ExportCSV(sampleResult(), "alice")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "hello, world", rows[1][1])
	assert.Equal(t, "42", rows[1][9])
	assert.Equal(t, "fyp,cats", rows[1][12])
}

func TestExportFileTypes(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter(dir)

	paths, err := e.Export(sampleResult(), "trend", ParseFileType("ALL"))
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	paths, err = e.Export(sampleResult(), "trend", ParseFileType("na"))
	require.NoError(t, err)
	assert.Empty(t, paths)

	assert.Equal(t, FileTypeNone, ParseFileType("xml"))
}
