// Package icons keeps work item type icons on disk and serves them as data URIs.
package icons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	svgMediaType  = "image/svg+xml"
	dataURIPrefix = "data:" + svgMediaType + ";utf8,"
)

// Fetcher resolves and downloads work item type icons.
type Fetcher interface {
	GetWorkItemTypeIconURL(ctx context.Context, source devops.Source, project, workItemType string) (string, error)
	Download(ctx context.Context, url, accept string) ([]byte, error)
}

// Cache maps (project, work item type) to an icon stored under dir.
type Cache struct {
	dir    string
	logger *logrus.Entry

	mu    sync.RWMutex
	icons map[string]string

	group singleflight.Group
}

// New creates a cache rooted at dir. Call Load to pick up icons already on disk.
func New(dir string, logger *logrus.Entry) *Cache {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Cache{
		dir:    dir,
		logger: logger,
		icons:  make(map[string]string),
	}
}

// Dir is the directory icons are stored in.
func (c *Cache) Dir() string {
	return c.dir
}

// Filename is the file an icon is stored under.
func Filename(project, workItemType string) string {
	return strings.ToLower(project) + "_" + strings.ToLower(workItemType) + ".svg"
}

// Load replaces the in-memory icon map with the contents of the directory. A
// missing directory yields an empty map.
func (c *Cache) Load() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.mu.Lock()
			c.icons = make(map[string]string)
			c.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read icon dir: %w", err)
	}

	icons := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".svg") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read icon %s: %w", entry.Name(), err)
		}
		icons[strings.ToLower(entry.Name())] = dataURIPrefix + string(data)
	}

	c.mu.Lock()
	c.icons = icons
	c.mu.Unlock()
	return nil
}

// URI returns the data URI of the icon for a work item type, if cached.
func (c *Cache) URI(project, workItemType string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uri, ok := c.icons[Filename(project, workItemType)]
	return uri, ok
}

// EnsureCached downloads the icon of a work item type unless it is already on
// disk, then reloads the map. Concurrent calls for the same icon share one
// download. It returns the path of the icon file.
func (c *Cache) EnsureCached(ctx context.Context, f Fetcher, source devops.Source, project, workItemType string) (string, error) {
	name := Filename(project, workItemType)
	path := filepath.Join(c.dir, name)

	_, err, _ := c.group.Do(name, func() (any, error) {
		if _, err := os.Stat(path); err == nil {
			return nil, nil
		}

		if err := os.MkdirAll(c.dir, 0755); err != nil {
			return nil, fmt.Errorf("create icon dir: %w", err)
		}

		iconURL, err := f.GetWorkItemTypeIconURL(ctx, source, project, workItemType)
		if err != nil {
			return nil, err
		}
		svg, err := f.Download(ctx, iconURL, svgMediaType)
		if err != nil {
			return nil, fmt.Errorf("download icon %s: %w", name, err)
		}
		if err := writeFileAtomic(path, svg); err != nil {
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"project": project,
			"type":    workItemType,
		}).Debug("Cached work item icon")

		return nil, c.Load()
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".icon-*")
	if err != nil {
		return fmt.Errorf("create temp icon: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close icon: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store icon: %w", err)
	}
	return nil
}
