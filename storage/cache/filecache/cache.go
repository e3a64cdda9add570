package filecache

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/tshola/ngoma/core/collection"
)

var unsafeKeyChars = regexp.MustCompile(`[^\w.-]`)

// Cache persists one serialized Collection per key as a JSON file in dir.
// Writes go through an atomic rename so a crash mid-write never leaves a
// torn cache entry behind.
type Cache struct {
	dir string
}

var _ collection.Cache = (*Cache)(nil)

func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "filecache: creating cache dir")
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, collection.ErrCacheMiss
		}
		return nil, errors.Wrap(err, "filecache: reading cache entry")
	}
	return data, nil
}

func (c *Cache) Put(key string, data []byte) error {
	if err := atomic.WriteFile(c.path(key), bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "filecache: writing cache entry")
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}
