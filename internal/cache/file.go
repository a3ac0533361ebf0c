package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// cacheFilePermissions is the permission mode for cache files.
	cacheFilePermissions = 0o640

	// cacheDirPermissions is the permission mode for cache directories.
	cacheDirPermissions = 0o750

	// fileVersion is the current on-disk format.
	fileVersion = 2
)

// ErrCorruptCache indicates the cache file is malformed JSON.
var ErrCorruptCache = errors.New("cache file is corrupted")

// cacheFile is the on-disk layout.
type cacheFile struct {
	Version   int     `json:"version"`
	Explorer  string  `json:"explorer"`
	Addresses []Entry `json:"addresses"`
}

// FileStorage persists remembered addresses as JSON. Answers are only
// valid for the explorer that gave them, so the file records its source
// and is ignored when read for another one.
type FileStorage struct {
	path     string
	explorer string
}

// NewFileStorage creates a file-based cache storage for answers from the
// explorer at explorerURL.
func NewFileStorage(path, explorerURL string) *FileStorage {
	return &FileStorage{path: path, explorer: explorerURL}
}

// Save writes the cache contents to disk atomically.
func (s *FileStorage) Save(c *ActivityCache) error {
	if err := os.MkdirAll(filepath.Dir(s.path), cacheDirPermissions); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cacheFile{
		Version:   fileVersion,
		Explorer:  s.explorer,
		Addresses: c.Entries(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := writeAtomic(s.path, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	c.Clean()
	return nil
}

// LoadInto adds the persisted addresses to c. A missing file, or one
// written for another explorer, adds nothing. A corrupt file is moved
// aside and reported with ErrCorruptCache.
func (s *FileStorage) LoadInto(c *ActivityCache) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache file: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, corruptPath); renameErr != nil {
			return fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptCache, err, renameErr)
		}
		return fmt.Errorf("%w: %w (moved to %s)", ErrCorruptCache, err, corruptPath)
	}

	if f.Explorer != s.explorer {
		return nil
	}
	c.Add(f.Addresses...)
	return nil
}

// Delete removes the cache file.
func (s *FileStorage) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Exists checks if the cache file exists.
func (s *FileStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the cache file path.
func (s *FileStorage) Path() string {
	return s.path
}

// writeAtomic replaces path with data via a synced temp file and rename,
// so readers never observe a partial cache file.
func writeAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
