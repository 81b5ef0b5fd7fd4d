package handler

import (
	"fmt"
	"net/http"

	"github.com/pavelanni/studyroom/internal/model"
)

func (h *Handler) handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	qs, err := h.quizzes.Questions(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

type submitRequest struct {
	Answers []int `json:"answers"`
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Answers == nil {
		writeError(w, r, fmt.Errorf("%w: answers are required", model.ErrValidation))
		return
	}
	attempt, err := h.quizzes.Submit(id, model.UserFromContext(r.Context()).ID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) handleMyAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	a, err := h.quizzes.Attempt(id, model.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleQuizReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	sum, err := h.quizzes.Report(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": sum, "text": sum.String()})
}

func (h *Handler) handleQuizTips(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	sum, err := h.quizzes.Report(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	text := sum.String()
	tips, err := h.gen.Tips(r.Context(), sum.Title, text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": text, "tips": tips})
}

func (h *Handler) handleQuizExport(w http.ResponseWriter, r *http.Request) {
	res, err := h.managedResource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Type != model.ResourceQuiz {
		writeMessage(w, r, http.StatusNotFound, "NotFound")
		return
	}
	export, err := h.store.ExportQuizAttempts(res.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d-attempts.json"`, res.ID))
	writeJSON(w, http.StatusOK, export)
}
