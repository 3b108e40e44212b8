package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"albumscan/pkg/logger"
)

const bundleSuffix = ".bundle.json"

// FileStore keeps each bundle as a JSON file in a directory
type FileStore struct {
	dir    string
	logger logger.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create handoff directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{dir: dir, logger: log}, nil
}

// Dir returns the store directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid handoff key %q", key)
	}
	return filepath.Join(s.dir, key+bundleSuffix), nil
}

// Put writes the bundle atomically
func (s *FileStore) Put(ctx context.Context, key string, b *Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tempPath := target + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary bundle file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(b); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync bundle file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close bundle file: %w", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace bundle file: %w", err)
	}

	s.logger.DebugWithFields("Bundle saved", map[string]interface{}{
		"key":    key,
		"assets": len(b.Assets),
		"path":   target,
	})
	return nil
}

// Take reads the bundle and removes it from disk
func (s *FileStore) Take(ctx context.Context, key string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open bundle file: %w", err)
	}

	var b Bundle
	decodeErr := json.NewDecoder(file).Decode(&b)
	file.Close()
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", decodeErr)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear bundle: %w", err)
	}

	s.logger.DebugWithFields("Bundle taken", map[string]interface{}{
		"key":    key,
		"assets": len(b.Assets),
	})
	return &b, nil
}

// Keys lists pending bundle keys, most recently written first
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff directory: %w", err)
	}

	type keyed struct {
		key   string
		mtime int64
	}
	var found []keyed
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, bundleSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, keyed{key: strings.TrimSuffix(name, bundleSuffix), mtime: info.ModTime().UnixNano()})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].mtime > found[j].mtime })
	keys := make([]string, len(found))
	for i, k := range found {
		keys[i] = k.key
	}
	return keys, nil
}

// DataDirectory returns the per-user data directory for albumscan
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "albumscan")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "albumscan")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "albumscan")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "albumscan")
		}
	}

	dataDir = filepath.Join(dataDir, "handoff")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
