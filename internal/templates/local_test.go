package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// writeFile creates a file with parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "top.ipynb"), `{"cells": []}`)
	writeFile(t, filepath.Join(root, "analysis", "report.ipynb"), `{"cells": ["report"]}`)
	writeFile(t, filepath.Join(root, "analysis", "notes.txt"), "not a notebook")
	writeFile(t, filepath.Join(root, "analysis", ".ipynb_checkpoints", "report-checkpoint.ipynb"), `{"cells": []}`)
	writeFile(t, filepath.Join(root, "ignored", IgnoreFile), "")
	writeFile(t, filepath.Join(root, "ignored", "skipme.ipynb"), `{"cells": []}`)
	writeFile(t, filepath.Join(root, "ignored", "nested", "keep.ipynb"), `{"cells": ["keep"]}`)
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir empty: %v", err)
	}

	return root
}

func TestLocalListSkipsRootLevelFiles(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	for group, summaries := range catalog {
		for _, s := range summaries {
			if s.Name == "/top.ipynb" || strings.HasSuffix(s.Name, "/top.ipynb") {
				t.Fatalf("root-level file leaked into group %q: %+v", group, summaries)
			}
		}
	}
}

func TestLocalListGroups(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	analysis, ok := catalog["analysis"]
	if !ok {
		t.Fatal("missing analysis group")
	}
	if len(analysis) != 1 || analysis[0].Name != "/analysis/report.ipynb" {
		t.Fatalf("unexpected analysis group: %+v", analysis)
	}

	// Sentinel: the ignored directory contributes nothing, but its
	// subdirectory still does.
	if _, ok := catalog["ignored"]; ok {
		t.Fatal("ignored directory produced a group")
	}
	nested, ok := catalog["ignored/nested"]
	if !ok {
		t.Fatal("subdirectory of ignored directory was not scanned")
	}
	if len(nested) != 1 || nested[0].Name != "/ignored/nested/keep.ipynb" {
		t.Fatalf("unexpected nested group: %+v", nested)
	}

	// Empty directories still get a catalog key.
	empty, ok := catalog["empty"]
	if !ok {
		t.Fatal("empty directory has no group")
	}
	if len(empty) != 0 {
		t.Fatalf("empty group has entries: %+v", empty)
	}
}

func TestLocalListExcludesCheckpoints(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	for group, summaries := range catalog {
		if strings.Contains(group, ".ipynb_checkpoints") {
			t.Fatalf("checkpoint directory produced a group: %q", group)
		}
		for _, s := range summaries {
			if strings.Contains(s.Name, ".ipynb_checkpoints") {
				t.Fatalf("checkpoint file listed: %q", s.Name)
			}
		}
	}
}

func TestLocalGetRoundTrip(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	for _, summaries := range catalog {
		for _, s := range summaries {
			record, err := loader.Get(context.Background(), s.Name)
			if err != nil {
				t.Fatalf("Get(%q): %v", s.Name, err)
			}

			raw, err := os.ReadFile(record.Path)
			if err != nil {
				t.Fatalf("read %s: %v", record.Path, err)
			}
			if record.Content != string(raw) {
				t.Fatalf("content mismatch for %q", s.Name)
			}
			if record.Name != s.Name {
				t.Fatalf("Name = %q, want %q", record.Name, s.Name)
			}
		}
	}
}

func TestLocalGetUnknownName(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	_, err := loader.Get(context.Background(), "/nowhere/missing.ipynb")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Get unknown = %v, want ErrTemplateNotFound", err)
	}
}

func TestLocalGetReflectsCurrentState(t *testing.T) {
	root := testRoot(t)
	loader := NewLocalLoader(zerolog.Nop(), []string{root})

	name := "/analysis/report.ipynb"
	if _, err := loader.Get(context.Background(), name); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A fetch re-walks, so a deleted file must disappear immediately.
	if err := os.Remove(filepath.Join(root, "analysis", "report.ipynb")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := loader.Get(context.Background(), name); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Get after delete = %v, want ErrTemplateNotFound", err)
	}
}

func TestLocalExtensionGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "a.ipynb"), "{}")
	writeFile(t, filepath.Join(root, "sub", "b.nb"), "{}")

	loader := NewLocalLoader(zerolog.Nop(), []string{root}, WithExtensions([]string{"*.nb"}))
	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	sub := catalog["sub"]
	if len(sub) != 1 || sub[0].Name != "/sub/b.nb" {
		t.Fatalf("unexpected glob filtering: %+v", sub)
	}
}

func TestLocalFollowsSymlinkedDirs(t *testing.T) {
	shared := t.TempDir()
	writeFile(t, filepath.Join(shared, "shared.ipynb"), `{"cells": []}`)

	root := t.TempDir()
	if err := os.Symlink(shared, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	loader := NewLocalLoader(zerolog.Nop(), []string{root})
	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	linked := catalog["linked"]
	if len(linked) != 1 || linked[0].Name != "/linked/shared.ipynb" {
		t.Fatalf("symlinked directory not enumerated: %+v", catalog)
	}
}

func TestLocalMissingRootIsSkipped(t *testing.T) {
	loader := NewLocalLoader(zerolog.Nop(), []string{"/nonexistent/templates"})

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(catalog) != 0 {
		t.Fatalf("expected empty catalog, got %+v", catalog)
	}
}

func TestBuiltinTemplates(t *testing.T) {
	loader := NewLocalLoader(zerolog.Nop(), nil, WithBuiltin(BuiltinFS()))

	catalog, err := loader.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	sample := catalog["Sample"]
	if len(sample) != 1 || sample[0].Name != "/Sample/Sample.ipynb" {
		t.Fatalf("unexpected builtin catalog: %+v", catalog)
	}

	record, err := loader.Get(context.Background(), "/Sample/Sample.ipynb")
	if err != nil {
		t.Fatalf("Get builtin: %v", err)
	}
	if !strings.Contains(record.Content, "Sample template") {
		t.Fatalf("unexpected builtin content: %q", record.Content)
	}
}
