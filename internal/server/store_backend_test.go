package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jovyan/nbtemplates/internal/contents"
	"github.com/jovyan/nbtemplates/internal/templates"
)

// Exercises the full store-backed path: SQLite store -> store loader -> HTTP.
func TestStoreBackedEndpoints(t *testing.T) {
	ctx := context.Background()

	store, err := contents.OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if err := store.Put(ctx, "team/analysis/report.ipynb", contents.TypeNotebook, []byte(`{"cells":["report"]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	cfg := testConfig()
	cfg.LocalFiles = false
	cfg.StoreGroups = map[string]string{"Team": "team"}

	loader := templates.NewStoreLoader(zerolog.Nop(), store, cfg.StoreGroups)
	srv, err := New(cfg, zerolog.Nop(), loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := get(t, srv, "/templates/names")
	if rec.Code != http.StatusOK {
		t.Fatalf("names status = %d", rec.Code)
	}
	var names struct {
		Templates map[string][]templates.Summary `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	team := names.Templates["Team"]
	if len(team) != 1 || team[0].Name != "team/analysis/report.ipynb" {
		t.Fatalf("unexpected catalog: %+v", names.Templates)
	}

	rec = get(t, srv, "/templates/get?template=team%2Fanalysis%2Freport.ipynb")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", rec.Code, rec.Body.String())
	}
	var record templates.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Filename != "report.ipynb" || record.Dirname != "team/analysis" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Content != `{"cells":["report"]}` {
		t.Fatalf("content = %q", record.Content)
	}

	rec = get(t, srv, "/templates/get?template=team%2Fmissing.ipynb")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing notebook status = %d, want 404", rec.Code)
	}
}
