package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studyroom/internal/aggregate"
	appI18n "github.com/pavelanni/studyroom/internal/i18n"
	"github.com/pavelanni/studyroom/internal/model"
)

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.resolver.Subjects()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleSubjectFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.resolver.ListFiles(chi.URLParam(r, "subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// handleFileText extracts one explicitly selected file; any failure is reported.
func (h *Handler) handleFileText(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	text, err := h.agg.ExtractFile(rel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": rel, "text": text})
}

type aggregateRequest struct {
	Subject  string   `json:"subject"`
	Paths    []string `json:"paths"`
	MaxChars int      `json:"max_chars"`
	// Strict aborts on the first file that cannot be extracted.
	Strict bool `json:"strict"`
}

type aggregateResponse struct {
	*aggregate.Result
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) aggregate(r *http.Request, req aggregateRequest) (*aggregateResponse, error) {
	opts := aggregate.Options{MaxChars: req.MaxChars, Policy: aggregate.Skip}
	if opts.MaxChars == 0 {
		opts.MaxChars = h.config.MaxChars
	}
	if req.Strict {
		opts.Policy = aggregate.Abort
	}

	var res *aggregate.Result
	var err error
	switch {
	case len(req.Paths) > 0:
		res, err = h.agg.Files(r.Context(), req.Paths, opts)
	case req.Subject != "":
		res, err = h.agg.Subject(r.Context(), req.Subject, opts)
	default:
		err = model.ErrValidation
	}
	if err != nil {
		return nil, err
	}
	out := &aggregateResponse{Result: res}
	if n := len(res.Skipped); n > 0 {
		out.Warning = appI18n.Tp(r.Context(), "FilesSkipped", n)
	}
	return out, nil
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.aggregate(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
