// Package contents provides the abstract hierarchical content store backing
// store-based template enumeration. The store exposes two primitives: list a
// directory's children and read a single item with content.
package contents

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EntryType classifies a store entry.
type EntryType string

// Entry types.
const (
	TypeDirectory EntryType = "directory"
	TypeNotebook  EntryType = "notebook"
	TypeFile      EntryType = "file"
)

// Store errors.
var (
	ErrNotFound  = errors.New("no entry at path")
	ErrForbidden = errors.New("not authorized")
)

// Entry is one item in the store. Children is populated for directories and
// Content for notebooks and files, in both cases only when content was
// requested.
type Entry struct {
	Name         string          `json:"name"`
	Path         string          `json:"path"`
	Type         EntryType       `json:"type"`
	Created      time.Time       `json:"created"`
	LastModified time.Time       `json:"last_modified"`
	Children     []*Entry        `json:"children,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
}

// GetOptions control what Get returns.
type GetOptions struct {
	// Content requests the entry body: children for directories, the
	// document for notebooks and files.
	Content bool

	// Type, when set, requires the entry to have this type. A mismatch is
	// reported as ErrNotFound.
	Type EntryType
}

// Store is the hierarchical content API. Implementations must treat paths as
// slash-separated and relative to the store root.
type Store interface {
	Get(ctx context.Context, path string, opts GetOptions) (*Entry, error)
}
