package handler

import (
	"net/http"
	"strings"

	"github.com/Kyushi/pemoi/internal/storage"
)

type uploadHandler struct {
	storage storage.Storage
}

func NewUploadHandler(storage storage.Storage) *uploadHandler {
	return &uploadHandler{storage: storage}
}

// Serve streams a local upload or redirects to a presigned S3 URL.
func (h *uploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	area := r.PathValue("username")
	if strings.HasPrefix(area, "~") {
		http.NotFound(w, r)
		return
	}
	key := storage.Key(area, r.PathValue("file"))

	switch s := h.storage.(type) {
	case interface{ Path(string) (string, error) }:
		path, err := s.Path(key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFile(w, r, path)
	case interface{ PresignedURL(string) (string, error) }:
		url, err := s.PresignedURL(key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	default:
		http.NotFound(w, r)
	}
}
