package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/studyroom/internal/authoring"
	"github.com/pavelanni/studyroom/internal/model"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userView, len(users))
	for i := range users {
		out[i] = newUserView(&users[i])
	}
	writeJSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
	ClassID     *int64         `json:"class_id"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	switch req.Role {
	case "":
		req.Role = model.UserRoleStudent
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		ClassID:      req.ClassID,
		Active:       true,
	}
	id, err := h.store.CreateUser(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u.ID = id
	writeJSON(w, http.StatusCreated, newUserView(&u))
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		slog.Error("failed to toggle user active", "id", id, "error", err)
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetUserClass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	var req struct {
		ClassID *int64 `json:"class_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.SetUserClass(id, req.ClassID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadResources(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	file, header, err := r.FormFile("resources_file")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Validation")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	res, err := authoring.Import(h.store, user.ID, header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("uploaded resources via admin", "filename", header.Filename, "count", res.Imported)
	writeJSON(w, http.StatusOK, res)
}
