package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jovyan/nbtemplates/internal/contents"
)

// StoreLoader enumerates templates through an abstract content store instead
// of walking a local filesystem. It exists for deployments where templates
// live in remote or object-backed storage and a full recursive read of every
// template's content per listing would be too slow: List only discovers
// names, and content is fetched one item at a time by Get.
type StoreLoader struct {
	groups map[string]string // group name -> root path in the store
	store  contents.Store
	logger zerolog.Logger
}

// NewStoreLoader creates a loader over the given store. groups maps catalog
// group names to store root paths.
func NewStoreLoader(logger zerolog.Logger, store contents.Store, groups map[string]string) *StoreLoader {
	return &StoreLoader{
		groups: groups,
		store:  store,
		logger: logger,
	}
}

// List traverses each configured group's subtree breadth-first and collects
// every notebook-typed item. Every configured group appears in the catalog
// even when its subtree holds no notebooks. Sibling traversal order is
// unspecified; each directory is visited exactly once.
func (l *StoreLoader) List(ctx context.Context) (Catalog, error) {
	catalog := make(Catalog)

	for group, root := range l.groups {
		catalog[group] = []Summary{}

		pending := map[string]bool{root: true}
		seen := map[string]bool{}

		for len(pending) > 0 {
			var dir string
			for dir = range pending {
				break
			}
			delete(pending, dir)
			if seen[dir] {
				continue
			}
			seen[dir] = true

			entry, err := l.store.Get(ctx, dir, contents.GetOptions{
				Content: true,
				Type:    contents.TypeDirectory,
			})
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", dir, err)
			}

			for _, child := range entry.Children {
				switch child.Type {
				case contents.TypeDirectory:
					if !seen[child.Path] {
						pending[child.Path] = true
					}
				case contents.TypeNotebook:
					catalog[group] = append(catalog[group], Summary{Name: child.Path})
				}
			}
		}

		l.logger.Debug().Str("group", group).Int("templates", len(catalog[group])).Msg("scanned store group")
	}

	return catalog, nil
}

// Get fetches a single notebook from the store with full content. No catalog
// index is rebuilt; store errors (not found, not authorized) propagate to the
// caller untranslated.
func (l *StoreLoader) Get(ctx context.Context, name string) (*Record, error) {
	entry, err := l.store.Get(ctx, name, contents.GetOptions{
		Content: true,
		Type:    contents.TypeNotebook,
	})
	if err != nil {
		return nil, err
	}

	content, err := json.Marshal(entry.Content)
	if err != nil {
		return nil, fmt.Errorf("encode notebook %s: %w", name, err)
	}

	dir, file := path.Split(name)
	return &Record{
		Path:     name,
		Name:     file,
		Dirname:  strings.TrimSuffix(dir, "/"),
		Filename: file,
		Content:  string(content),
	}, nil
}
