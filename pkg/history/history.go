// Package history keeps a per-feed record of past scrapes on disk.
//
// Entries are keyed by "<type>:<input>". Recording a scrape of a feed that
// is already known adds to its post count and moves its last change time.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"ttscraper/pkg/logger"
)

const fileName = "history.json"

// Item is one feed's scrape history
type Item struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Input           string    `json:"input"`
	DownloadedPosts int       `json:"downloaded_posts"`
	LastChange      time.Time `json:"last_change"`
	FileLocation    string    `json:"file_location"`
}

// Key returns the map key for a scrape type and input
func Key(scrapeType, input string) string {
	return scrapeType + ":" + input
}

// Store reads and writes the history file
type Store struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger logger.Logger
}

// NewStore creates a store under dir. An empty dir means the platform data directory.
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Store{
		path:   filepath.Join(dir, fileName),
		now:    time.Now,
		logger: log,
	}, nil
}

// Path returns the history file location
func (s *Store) Path() string {
	return s.path
}

// Record adds posts to the entry for scrapeType and input, creating it if needed
func (s *Store) Record(scrapeType, input string, posts int, fileLocation string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return Item{}, err
	}

	k := Key(scrapeType, input)
	item, ok := items[k]
	if !ok {
		item = Item{ID: uuid.NewString(), Type: scrapeType, Input: input}
	}
	item.DownloadedPosts += posts
	item.LastChange = s.now()
	if fileLocation != "" {
		item.FileLocation = fileLocation
	}
	items[k] = item

	if err := s.save(items); err != nil {
		return Item{}, err
	}

	s.logger.DebugWithFields("History updated", map[string]interface{}{
		"key":              k,
		"downloaded_posts": item.DownloadedPosts,
	})
	return item, nil
}

// Get returns the entry for scrapeType and input
func (s *Store) Get(scrapeType, input string) (Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return Item{}, false, err
	}
	item, ok := items[Key(scrapeType, input)]
	return item, ok, nil
}

// List returns all entries, most recently changed first
func (s *Store) List() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastChange.Equal(out[j].LastChange) {
			return Key(out[i].Type, out[i].Input) < Key(out[j].Type, out[j].Input)
		}
		return out[i].LastChange.After(out[j].LastChange)
	})
	return out, nil
}

// Remove deletes the entry for scrapeType and input
func (s *Store) Remove(scrapeType, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	delete(items, Key(scrapeType, input))
	return s.save(items)
}

// Clear removes the history file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *Store) load() (map[string]Item, error) {
	items := make(map[string]Item)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return items, nil
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return items, nil
}

// save writes items to a temp file, syncs it and renames it over the history file
func (s *Store) save(items map[string]Item) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync history file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close history file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// DataDirectory returns the per-user data directory for ttscraper
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "ttscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "ttscraper")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "ttscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "ttscraper")
		}
	}

	return dataDir, nil
}
