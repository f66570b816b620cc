package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache is a TTL'd JSON file cache for fetched data. Keys are derived
// from the request parameters so identical fetches within the TTL never hit
// the upstream provider again.
type FileCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

func NewFileCache(dir string, ttl time.Duration, enabled bool) *FileCache {
	return &FileCache{dir: dir, ttl: ttl, enabled: enabled}
}

func (c *FileCache) key(source, method string, params any) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("%s_%s_%x.json", source, method, md5.Sum(data))
}

// Get loads a cached value into result, reporting whether it was present
// and fresh. Expired entries are removed on the way out.
func (c *FileCache) Get(source, method string, params, result any) bool {
	if !c.enabled {
		return false
	}
	path := filepath.Join(c.dir, c.key(source, method, params))

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > c.ttl {
		os.Remove(path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

// Set stores a value; cache write failures are returned but callers treat
// them as non-fatal.
func (c *FileCache) Set(source, method string, params, value any) error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, c.key(source, method, params)), data, 0o644)
}
