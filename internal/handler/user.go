package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/ctxkeys"
	"github.com/Kyushi/pemoi/internal/markdown"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/service"
)

type userHandler struct {
	authService *service.AuthService
	userService *service.UserService
	itemService *service.ItemService
	renderer    *markdown.Renderer
}

func NewUserHandler(authService *service.AuthService, userService *service.UserService, itemService *service.ItemService, renderer *markdown.Renderer) *userHandler {
	return &userHandler{
		authService: authService,
		userService: userService,
		itemService: itemService,
		renderer:    renderer,
	}
}

type profileView struct {
	User      *model.User   `json:"user"`
	AboutHTML string        `json:"about_html"`
	Items     []*model.Item `json:"items"`
}

func (h *userHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	viewer := ctxkeys.Viewer(r.Context())
	user, err := h.userService.Profile(r.Context(), viewer, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.itemService.ListByOwner(r.Context(), viewer, user.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	about, err := h.renderer.RenderString(user.About)
	if err != nil {
		slog.Warn("failed to render bio", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, profileView{User: user, AboutHTML: about, Items: items})
}

// CheckUsername reports whether a username is available to the caller.
func (h *userHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	err := decodeJSON(r, &body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var self *int64
	if user := ctxkeys.User(r.Context()); user != nil {
		self = &user.ID
	}

	err = h.userService.ValidateUsername(r.Context(), body.Username, self)
	if err != nil && !errors.Is(err, apperror.ErrValidation) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *userHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var update service.ProfileUpdate
	err = decodeJSON(r, &update)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.EditProfile(r.Context(), ctxkeys.Viewer(r.Context()), id, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete removes the caller's account and ends the session.
func (h *userHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.userService.DeleteAccount(r.Context(), ctxkeys.Viewer(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
