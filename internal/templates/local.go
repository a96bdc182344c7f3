package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalLoader enumerates templates by walking local directory trees. Every
// List or Get call re-walks the configured roots so results always reflect
// the current filesystem state; catalogs are never cached.
type LocalLoader struct {
	roots   []string
	globs   []string
	builtin fs.FS
	logger  zerolog.Logger
}

// LocalOption configures a LocalLoader.
type LocalOption func(*LocalLoader)

// WithExtensions overrides the allowed filename globs.
func WithExtensions(globs []string) LocalOption {
	return func(l *LocalLoader) {
		if len(globs) > 0 {
			l.globs = globs
		}
	}
}

// WithBuiltin adds an embedded template tree that participates in the walk
// like another root directory.
func WithBuiltin(fsys fs.FS) LocalOption {
	return func(l *LocalLoader) {
		l.builtin = fsys
	}
}

// NewLocalLoader creates a loader over the given root directories.
func NewLocalLoader(logger zerolog.Logger, roots []string, opts ...LocalOption) *LocalLoader {
	l := &LocalLoader{
		roots:  roots,
		globs:  DefaultExtensions(),
		logger: logger,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// List walks all roots and returns the grouped catalog.
func (l *LocalLoader) List(ctx context.Context) (Catalog, error) {
	catalog, _, err := l.walk(ctx)
	return catalog, err
}

// Get re-walks the roots and returns the record whose display name matches.
// The walk is repeated on purpose: a fetch must reflect the filesystem as it
// is now, not as it was when the catalog was listed.
func (l *LocalLoader) Get(ctx context.Context, name string) (*Record, error) {
	_, index, err := l.walk(ctx)
	if err != nil {
		return nil, err
	}

	record, ok := index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return record, nil
}

// walk builds the catalog and the name-keyed record index in one pass.
func (l *LocalLoader) walk(ctx context.Context) (Catalog, map[string]*Record, error) {
	catalog := make(Catalog)
	index := make(map[string]*Record)

	for _, root := range l.roots {
		if err := l.walkRoot(root, catalog, index); err != nil {
			return nil, nil, err
		}
	}

	if l.builtin != nil {
		if err := l.walkBuiltin(l.builtin, catalog, index); err != nil {
			return nil, nil, err
		}
	}

	return catalog, index, nil
}

// walkRoot scans every directory below root. The root's own files are
// excluded; only descendants are offered as templates.
func (l *LocalLoader) walkRoot(root string, catalog Catalog, index map[string]*Record) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		// Missing search paths are expected (core paths rarely all exist).
		return nil
	}

	// Symlinks are followed, so track resolved directories to terminate on
	// cycles and avoid double-listing.
	visited := make(map[string]bool)

	var scan func(dir string) error
	scan = func(dir string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil
		}
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}

		subdirs := make([]string, 0, len(entries))
		names := make([]string, 0, len(entries))
		ignored := false
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if isDir(entry, full) {
				if entry.Name() == checkpointDir {
					continue
				}
				subdirs = append(subdirs, full)
				continue
			}
			if entry.Name() == IgnoreFile {
				ignored = true
				continue
			}
			names = append(names, entry.Name())
		}

		if dir != root && !ignored {
			relDir, err := filepath.Rel(root, dir)
			if err != nil {
				return fmt.Errorf("relativize %s under %s: %w", dir, root, err)
			}
			relDir = filepath.ToSlash(relDir)
			group := strings.Trim(relDir, "/")
			if _, ok := catalog[group]; !ok {
				catalog[group] = []Summary{}
			}

			for _, filename := range names {
				if !matchAny(l.globs, filename) {
					continue
				}
				full := filepath.Join(dir, filename)
				content, err := readTemplateFile(full)
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
						// File vanished or is unreadable; leave it out of the
						// catalog rather than failing the whole listing.
						l.logger.Debug().Str("path", full).Err(err).Msg("skipping unreadable template")
						continue
					}
					return err
				}

				record := &Record{
					Path:     full,
					Name:     "/" + group + "/" + filename,
					Dirname:  "/" + group,
					Filename: filename,
					Content:  content,
				}
				catalog[group] = append(catalog[group], Summary{Name: record.Name})
				index[record.Name] = record
			}
		}

		for _, sub := range subdirs {
			if err := scan(sub); err != nil {
				return err
			}
		}
		return nil
	}

	return scan(root)
}

// walkBuiltin applies the same filters to an embedded template tree.
func (l *LocalLoader) walkBuiltin(fsys fs.FS, catalog Catalog, index map[string]*Record) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p == "." {
			return nil
		}
		if d.Name() == checkpointDir {
			return fs.SkipDir
		}

		entries, err := fs.ReadDir(fsys, p)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Name() == IgnoreFile {
				return nil
			}
		}

		group := strings.Trim(p, "/")
		if _, ok := catalog[group]; !ok {
			catalog[group] = []Summary{}
		}

		for _, entry := range entries {
			if entry.IsDir() || !matchAny(l.globs, entry.Name()) {
				continue
			}
			full := path.Join(p, entry.Name())
			data, err := fs.ReadFile(fsys, full)
			if err != nil {
				continue
			}

			record := &Record{
				Path:     full,
				Name:     "/" + group + "/" + entry.Name(),
				Dirname:  "/" + group,
				Filename: entry.Name(),
				Content:  string(data),
			}
			catalog[group] = append(catalog[group], Summary{Name: record.Name})
			index[record.Name] = record
		}
		return nil
	})
}

// isDir reports whether entry is a directory, resolving symlinks.
func isDir(entry os.DirEntry, full string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

func matchAny(globs []string, name string) bool {
	for _, glob := range globs {
		if ok, err := path.Match(glob, name); err == nil && ok {
			return true
		}
	}
	return false
}

func readTemplateFile(full string) (string, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
