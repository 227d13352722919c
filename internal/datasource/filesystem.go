package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Filesystem reads items from ContentDir and layouts from LayoutsDir.
// The identifier of a document is its slash-separated path relative to
// its directory, with a leading slash. A leading YAML front matter block
// becomes the document's attributes.
type Filesystem struct {
	ContentDir string
	LayoutsDir string
	Logger     *slog.Logger
}

// Items implements Source.
func (f *Filesystem) Items(ctx context.Context) ([]*site.Item, error) {
	var items []*site.Item
	err := f.walk(ctx, f.ContentDir, func(id string, data []byte) error {
		attrs, body, err := splitFrontMatter(data)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		items = append(items, site.NewItem(id, body, attrs))
		return nil
	})
	return items, err
}

// Layouts implements Source.
func (f *Filesystem) Layouts(ctx context.Context) ([]*site.Layout, error) {
	var layouts []*site.Layout
	err := f.walk(ctx, f.LayoutsDir, func(id string, data []byte) error {
		attrs, body, err := splitFrontMatter(data)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		layouts = append(layouts, site.NewLayout(id, body, attrs))
		return nil
	})
	return layouts, err
}

// walk calls fn for every regular file under dir. Hidden files and
// directories are skipped. A missing directory holds no documents.
func (f *Filesystem) walk(ctx context.Context, dir string, fn func(id string, data []byte) error) error {
	if dir == "" {
		return nil
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fn(identifier(filepath.ToSlash(rel)), data)
	})
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
			return nil
		}
	}
	return err
}

// Changes implements Watcher. It watches every directory under ContentDir
// and LayoutsDir, including directories created later.
func (f *Filesystem) Changes(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch sources: %w", err)
	}
	for _, dir := range []string{f.ContentDir, f.LayoutsDir} {
		if err := addTree(watcher, dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addTree(watcher, event.Name); err != nil {
							logger.Warn("watch directory failed", "path", event.Name, "error", err)
						}
					}
				}
				select {
				case out <- Change{Source: "filesystem", Path: event.Name}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("source watcher error", "error", err)
			}
		}
	}()
	return out, nil
}

func addTree(w *fsnotify.Watcher, dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
