// Package templates provides notebook template enumeration and retrieval.
package templates

import (
	"context"
	"errors"
)

// DefaultLabel is used when no template label is configured.
const DefaultLabel = "Template"

// IgnoreFile marks a directory as excluded from enumeration. Subdirectories
// of an ignored directory are still scanned.
const IgnoreFile = ".nbtemplates_ignore"

// checkpointDir is the notebook checkpoint cache segment; any path containing
// it is never offered as a template.
const checkpointDir = ".ipynb_checkpoints"

// DefaultExtensions returns the default filename globs.
func DefaultExtensions() []string {
	return []string{"*.ipynb"}
}

// ErrTemplateNotFound is returned by Get for names never produced by List.
var ErrTemplateNotFound = errors.New("template not found")

// Summary identifies one template in a catalog listing. It carries no
// content; the Name is the key clients pass back to fetch the full record.
type Summary struct {
	Name string `json:"name"`
}

// Record is the fully resolved template returned by Get.
type Record struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Dirname  string `json:"dirname"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Catalog maps a group key (a directory label) to the templates found under
// it. Catalogs are rebuilt on every call and never cached.
type Catalog map[string][]Summary

// Loader enumerates templates and resolves a single template by name. The
// two implementations (local filesystem walk, content-store traversal) are
// selected once at startup from configuration.
type Loader interface {
	// List rebuilds the catalog from the backing source.
	List(ctx context.Context) (Catalog, error)

	// Get resolves one template by the name a prior List produced. The
	// local loader reports unknown names as ErrTemplateNotFound; the store
	// loader propagates the store's own errors unmodified.
	Get(ctx context.Context, name string) (*Record, error)
}
