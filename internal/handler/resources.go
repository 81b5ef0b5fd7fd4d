package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/studyroom/internal/authoring"
	"github.com/pavelanni/studyroom/internal/llm"
	"github.com/pavelanni/studyroom/internal/model"
	"github.com/pavelanni/studyroom/internal/store"
)

// resourceSummary is a resource without its content, safe to list to students.
type resourceSummary struct {
	ID        int64              `json:"id"`
	Type      model.ResourceType `json:"type"`
	Title     string             `json:"title"`
	Subject   string             `json:"subject"`
	ClassID   *int64             `json:"class_id,omitempty"`
	Published bool               `json:"published"`
	CreatedAt time.Time          `json:"created_at"`
}

func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	f := store.ResourceFilter{Type: model.ResourceType(r.URL.Query().Get("type"))}
	switch user.Role {
	case model.UserRoleAdmin:
	case model.UserRoleTeacher:
		f.OwnerID = user.ID
	default:
		f.PublishedOnly = true
		f.ClassID = user.ClassID
		if f.ClassID == nil {
			// Unassigned students only see school-wide resources.
			f.ClassID = new(int64)
		}
	}

	list, err := h.store.ListResources(f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]resourceSummary, len(list))
	for i, res := range list {
		out[i] = resourceSummary{
			ID: res.ID, Type: res.Type, Title: res.Title, Subject: res.Subject,
			ClassID: res.ClassID, Published: res.Published, CreatedAt: res.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// managedResource loads a resource the current user may manage.
func (h *Handler) managedResource(r *http.Request) (*model.Resource, error) {
	id, ok := idParam(r, "id")
	if !ok {
		return nil, fmt.Errorf("%w: bad resource id", model.ErrValidation)
	}
	res, err := h.store.GetResource(id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: resource %d", model.ErrNotFound, id)
	}
	if !model.UserFromContext(r.Context()).CanManage(res) {
		return nil, model.ErrNotOwner
	}
	return res, nil
}

func (h *Handler) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.managedResource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type resourceRequest struct {
	Type    model.ResourceType `json:"type"`
	Title   string             `json:"title"`
	Subject string             `json:"subject"`
	ClassID *int64             `json:"class_id"`
	// Content is either a JSON document or a string holding one.
	Content json.RawMessage `json:"content"`
}

func (req resourceRequest) content() (string, error) {
	raw := bytes.TrimSpace(req.Content)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: content: %v", model.ErrValidation, err)
		}
		return s, nil
	}
	return string(raw), nil
}

func (h *Handler) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req resourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	content, err := req.content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := authoring.NewResource(model.Resource{
		Type:    req.Type,
		Title:   req.Title,
		Subject: req.Subject,
		OwnerID: model.UserFromContext(r.Context()).ID,
		ClassID: req.ClassID,
		Content: content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.store.CreateResource(res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := h.store.GetResource(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleUpdateResource replaces title, subject, class and content as a whole.
func (h *Handler) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	existing, err := h.managedResource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type != "" && req.Type != existing.Type {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	content, err := req.content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := authoring.NewResource(model.Resource{
		ID:        existing.ID,
		Type:      existing.Type,
		Title:     req.Title,
		Subject:   req.Subject,
		OwnerID:   existing.OwnerID,
		ClassID:   req.ClassID,
		Published: existing.Published,
		Content:   content,
		CreatedAt: existing.CreatedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.UpdateResource(updated); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handlePublish(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.managedResource(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := h.store.SetResourcePublished(res.ID, published); err != nil {
			writeError(w, r, err)
			return
		}
		res.Published = published
		writeJSON(w, http.StatusOK, res)
	}
}

type generateRequest struct {
	Type     model.ResourceType `json:"type"`
	Title    string             `json:"title"`
	Subject  string             `json:"subject"`
	Paths    []string           `json:"paths"`
	Count    int                `json:"count"`
	Focus    string             `json:"focus"`
	ClassID  *int64             `json:"class_id"`
	MaxChars int                `json:"max_chars"`
}

// handleGenerateResource aggregates materials, asks the generator for content
// and stores the result as an unpublished draft.
func (h *Handler) handleGenerateResource(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Count == 0 {
		req.Count = 10
	}
	material, err := h.aggregate(r, aggregateRequest{Subject: req.Subject, Paths: req.Paths, MaxChars: req.MaxChars})
	if err != nil {
		writeError(w, r, err)
		return
	}

	content, err := h.gen.Generate(r.Context(), req.Type, llm.GenerateInput{
		Subject:  req.Subject,
		Material: material.Text,
		Count:    req.Count,
		Focus:    req.Focus,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	title := req.Title
	if title == "" {
		title = strings.TrimSpace(fmt.Sprintf("%s %s", req.Subject, req.Type))
	}
	res := model.Resource{
		Type:    req.Type,
		Title:   title,
		Subject: req.Subject,
		OwnerID: model.UserFromContext(r.Context()).ID,
		ClassID: req.ClassID,
		Content: content,
	}
	id, err := h.store.CreateResource(res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := h.store.GetResource(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"resource": stored,
		"sources":  material.Included,
		"skipped":  material.Skipped,
		"warning":  material.Warning,
	})
}
