package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	appI18n "github.com/pavelanni/studyroom/internal/i18n"
	"github.com/pavelanni/studyroom/internal/llm"
	"github.com/pavelanni/studyroom/internal/model"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Join(model.ErrValidation, errors.New("empty body"))
		}
		return errors.Join(model.ErrValidation, err)
	}
	return nil
}

// errorMapping pairs an error kind with its status and message ID. More
// specific errors come first.
var errorMapping = []struct {
	err    error
	status int
	msgID  string
}{
	{model.ErrAlreadyAttempted, http.StatusForbidden, "AlreadyAttempted"},
	{model.ErrNotPublished, http.StatusForbidden, "NotPublished"},
	{model.ErrWrongClass, http.StatusForbidden, "WrongClass"},
	{model.ErrNotOwner, http.StatusForbidden, "NotOwner"},
	{model.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{model.ErrNotFound, http.StatusNotFound, "NotFound"},
	{llm.ErrDisabled, http.StatusServiceUnavailable, "GenerationDisabled"},
	{llm.ErrBadOutput, http.StatusBadGateway, "GenerationFailed"},
	{model.ErrMalformedQuiz, http.StatusUnprocessableEntity, "MalformedQuiz"},
	{model.ErrMalformedDeck, http.StatusUnprocessableEntity, "MalformedDeck"},
	{model.ErrUnsupported, http.StatusUnprocessableEntity, "Unsupported"},
	{model.ErrExtraction, http.StatusUnprocessableEntity, "ExtractionFailed"},
	{model.ErrDuplicate, http.StatusConflict, "Validation"},
	{model.ErrValidation, http.StatusBadRequest, "Validation"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "GenerationFailed"},
}

// writeError maps an error to a status code and a localized message. Students
// never see the underlying error text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			slog.Debug("request rejected", "path", r.URL.Path, "status", m.status, "error", err)
			writeMessage(w, r, m.status, m.msgID)
			return
		}
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeMessage(w, r, http.StatusInternalServerError, "Internal")
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorBody{Error: appI18n.T(r.Context(), msgID), Code: msgID})
}
