package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jovyan/nbtemplates/internal/contents"
	"github.com/jovyan/nbtemplates/internal/templates"
)

// namesResponse is the body of GET templates/names.
type namesResponse struct {
	Templates     templates.Catalog `json:"templates"`
	TemplateLabel string            `json:"template_label"`
}

// handleNames returns the grouped catalog of template names, without
// content. The catalog is rebuilt on every request.
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.loader.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("template listing failed")
		writeJSONError(w, http.StatusInternalServerError, "template listing failed")
		return
	}

	writeJSON(w, http.StatusOK, namesResponse{
		Templates:     catalog,
		TemplateLabel: s.cfg.TemplateLabel,
	})
}

// handleGet returns the full record for one template. A missing or empty
// "template" parameter yields 404 with no body; an unknown name yields an
// explicit 404.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("template")
	if name == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	record, err := s.loader.Get(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, templates.ErrTemplateNotFound), errors.Is(err, contents.ErrNotFound):
			writeJSONError(w, http.StatusNotFound, "template not found: "+name)
		case errors.Is(err, contents.ErrForbidden):
			writeJSONError(w, http.StatusForbidden, "not authorized: "+name)
		default:
			s.logger.Error().Err(err).Str("template", name).Msg("template fetch failed")
			writeJSONError(w, http.StatusInternalServerError, "template fetch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
