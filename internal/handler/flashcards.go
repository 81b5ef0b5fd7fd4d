package handler

import (
	"net/http"

	"github.com/pavelanni/studyroom/internal/model"
)

func (h *Handler) handleDeckCards(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	cards, err := h.scheduler.Cards(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

type rateRequest struct {
	CardIndex *int         `json:"card_index"`
	Rating    model.Rating `json:"rating"`
}

func (h *Handler) handleRateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CardIndex == nil {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	rating, err := h.scheduler.Rate(id, model.UserFromContext(r.Context()), *req.CardIndex, req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (h *Handler) handleMyRatings(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	view, err := h.scheduler.StudentView(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDeckTally(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	tally, err := h.scheduler.InstructorView(id, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}
