package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kyushi/pemoi/internal/ctxkeys"
	"github.com/Kyushi/pemoi/internal/markdown"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/Kyushi/pemoi/internal/validation"
)

type itemHandler struct {
	itemService   *service.ItemService
	renderer      *markdown.Renderer
	maxUploadSize int64
}

func NewItemHandler(itemService *service.ItemService, renderer *markdown.Renderer, maxUploadSize int64) *itemHandler {
	return &itemHandler{
		itemService:   itemService,
		renderer:      renderer,
		maxUploadSize: maxUploadSize,
	}
}

// Index lists the newest items the viewer may see.
func (h *itemHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.itemService.ListIndex(r.Context(), ctxkeys.Viewer(r.Context()), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *itemHandler) Mine(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	viewer := ctxkeys.Viewer(r.Context())
	items, err := h.itemService.ListByOwner(r.Context(), viewer, viewer.UserID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Create accepts multipart or urlencoded forms. An image in "file" takes
// precedence over "link".
func (h *itemHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	err := r.ParseMultipartForm(h.maxUploadSize)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(w, r, "file", "File too large")
			return
		}
		badRequest(w, r, "", "Invalid form")
		return
	}

	input, err := itemForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var upload *service.Upload
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// link only
	case err != nil:
		badRequest(w, r, "file", "Invalid file")
		return
	default:
		defer func() {
			closeErr := file.Close()
			if closeErr != nil {
				slog.Error("failed to close upload", "error", closeErr)
			}
		}()

		// Disallowed names fall back to the link inside the service
		if validation.AllowedImageName(header.Filename) {
			err = validation.ValidateFile(header, validation.ImageConstraints(h.maxUploadSize))
			if err != nil {
				badRequest(w, r, "file", err.Error())
				return
			}
		}
		upload = &service.Upload{Filename: header.Filename, Body: file}
	}

	item, err := h.itemService.Create(r.Context(), ctxkeys.Viewer(r.Context()), input, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func itemForm(r *http.Request) (service.ItemInput, error) {
	input := service.ItemInput{
		Link:     r.FormValue("link"),
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		Note:     r.FormValue("note"),
		Keywords: r.FormValue("keywords"),
		Public:   formBool(r, "public"),
	}

	raw := strings.TrimSpace(r.FormValue("category_id"))
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return input, validationError("category_id", "Invalid category")
		}
		input.CategoryID = id
	}

	name := r.FormValue("new_category")
	if strings.TrimSpace(name) != "" {
		input.NewCategory = &service.CategoryInput{
			Name:        name,
			Description: r.FormValue("new_category_description"),
			Public:      formBool(r, "new_category_public"),
		}
	}
	return input, nil
}

func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

type itemDetail struct {
	Item     *model.Item `json:"item"`
	NoteHTML string      `json:"note_html"`
	CanEdit  bool        `json:"can_edit"`
}

func (h *itemHandler) Show(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	note, err := h.renderer.RenderString(item.Note)
	if err != nil {
		slog.Warn("failed to render note", "error", err, "item_id", item.ID)
	}

	writeJSON(w, http.StatusOK, itemDetail{
		Item:     item,
		NoteHTML: note,
		CanEdit:  ctxkeys.Viewer(r.Context()).Owns(item.UserID),
	})
}

func (h *itemHandler) Export(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, item.Serialize())
}

func (h *itemHandler) load(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	item, err := h.itemService.Get(r.Context(), ctxkeys.Viewer(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return item, true
}

func (h *itemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input service.ItemInput
	err = decodeJSON(r, &input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.itemService.Edit(r.Context(), ctxkeys.Viewer(r.Context()), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *itemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.itemService.Delete(r.Context(), ctxkeys.Viewer(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
