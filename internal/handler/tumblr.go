package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/ctxkeys"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/Kyushi/pemoi/internal/tumblr"
)

type tumblrHandler struct {
	client      *tumblr.Client
	itemService *service.ItemService
}

func NewTumblrHandler(client *tumblr.Client, itemService *service.ItemService) *tumblrHandler {
	return &tumblrHandler{client: client, itemService: itemService}
}

type tumblrBrowse struct {
	*tumblr.Page
	Blog    string `json:"blog"`
	Tag     string `json:"tag,omitempty"`
	MaxPost int    `json:"max_post"`
}

// Browse lists a blog's photo posts, ready to be saved as items.
func (h *tumblrHandler) Browse(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Message: "Tumblr browsing is not configured"})
		return
	}

	q := r.URL.Query()
	query := tumblr.Query{Blog: q.Get("name"), Tag: q.Get("tag")}
	if query.Blog == "" {
		badRequest(w, r, "name", "Please enter a Tumblr name")
		return
	}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))

	page, err := h.client.Photos(r.Context(), query)
	if errors.Is(err, tumblr.ErrBlogNotFound) {
		writeError(w, r, apperror.ValidationFailed("name", "No such Tumblr blog"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tumblrBrowse{Page: page, Blog: query.Blog, Tag: query.Tag, MaxPost: page.MaxPost()})
}

// Save stores a Tumblr photo as a private, uncategorized item.
func (h *tumblrHandler) Save(w http.ResponseWriter, r *http.Request) {
	var external service.ExternalItem
	err := decodeJSON(r, &external)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.itemService.SaveExternal(r.Context(), ctxkeys.Viewer(r.Context()), external)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
