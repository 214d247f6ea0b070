package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// VideoExt is the extension media files are saved with
const VideoExt = ".mp4"

// Manager handles media file storage and duplicate detection.
// Files live at <outputDir>/<input>/<id>.mp4.
type Manager struct {
	outputDir  string
	downloaded map[string]bool
	mu         sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir:  outputDir,
		downloaded: make(map[string]bool),
	}, nil
}

func key(input, id string) string {
	return input + "/" + id
}

// VideoPath returns where the video for id under input is stored
func (m *Manager) VideoPath(input, id string) string {
	return filepath.Join(m.outputDir, safeName(input), safeName(id)+VideoExt)
}

// IsDownloaded checks if the video for id under input is already on disk
func (m *Manager) IsDownloaded(input, id string) bool {
	m.mu.RLock()
	cached := m.downloaded[key(input, id)]
	m.mu.RUnlock()
	if cached {
		return true
	}

	if _, err := os.Stat(m.VideoPath(input, id)); err != nil {
		return false
	}

	m.mu.Lock()
	m.downloaded[key(input, id)] = true
	m.mu.Unlock()
	return true
}

// SaveVideo writes r to the video path for id under input via temp file and rename
func (m *Manager) SaveVideo(r io.Reader, input, id string) (string, error) {
	filename := m.VideoPath(input, id)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	if err := writeAtomic(filename, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.downloaded[key(input, id)] = true
	m.mu.Unlock()

	return filename, nil
}

// writeAtomic writes through fill into a temp file next to filename and renames it into place
func writeAtomic(filename string, fill func(io.Writer) error) error {
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = fill(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// safeName strips path separators so user input cannot escape the output directory
func safeName(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return s
}
