package handler

import (
	"net/http"

	"github.com/Kyushi/pemoi/internal/ctxkeys"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/service"
)

type categoryHandler struct {
	categoryService *service.CategoryService
	itemService     *service.ItemService
}

func NewCategoryHandler(categoryService *service.CategoryService, itemService *service.ItemService) *categoryHandler {
	return &categoryHandler{
		categoryService: categoryService,
		itemService:     itemService,
	}
}

func (h *categoryHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := service.ScopeAllVisible
	if r.URL.Query().Get("scope") == "own" {
		scope = service.ScopeOwnOnly
	}

	categories, err := h.categoryService.List(r.Context(), ctxkeys.Viewer(r.Context()), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// Export lists the visible categories in their export form.
func (h *categoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context(), ctxkeys.Viewer(r.Context()), service.ScopeAllVisible)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exports := make([]any, 0, len(categories))
	for _, c := range categories {
		exports = append(exports, c.Serialize())
	}
	writeJSON(w, http.StatusOK, map[string]any{"Categories": exports})
}

// CheckName answers whether a public category already uses a name.
func (h *categoryHandler) CheckName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		ID   *int64 `json:"id"`
	}
	err := decodeJSON(r, &body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exists, err := h.categoryService.NameExists(r.Context(), body.Name, body.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *categoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CategoryInput
	err := decodeJSON(r, &input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), ctxkeys.Viewer(r.Context()), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

type categoryDetail struct {
	Category *model.Category `json:"category"`
	Items    []*model.Item   `json:"items"`
	// CanEdit is false for the catchall category and for other users' categories
	CanEdit bool `json:"can_edit"`
}

func (h *categoryHandler) Show(w http.ResponseWriter, r *http.Request) {
	category, items, ok := h.load(w, r)
	if !ok {
		return
	}

	viewer := ctxkeys.Viewer(r.Context())
	writeJSON(w, http.StatusOK, categoryDetail{
		Category: category,
		Items:    items,
		CanEdit:  !category.IsUncategorized() && viewer.Owns(category.UserID),
	})
}

// ExportItems lists the category's visible items in their export form.
func (h *categoryHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	_, items, ok := h.load(w, r)
	if !ok {
		return
	}

	exports := make([]any, 0, len(items))
	for _, i := range items {
		exports = append(exports, i.Serialize())
	}
	writeJSON(w, http.StatusOK, map[string]any{"CategoryItems": exports})
}

func (h *categoryHandler) load(w http.ResponseWriter, r *http.Request) (*model.Category, []*model.Item, bool) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}

	viewer := ctxkeys.Viewer(r.Context())
	category, err := h.categoryService.Get(r.Context(), viewer, id)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}

	items, err := h.itemService.ListByCategory(r.Context(), viewer, id, page)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return category, items, true
}

func (h *categoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input service.CategoryInput
	err = decodeJSON(r, &input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	category, err := h.categoryService.Edit(r.Context(), ctxkeys.Viewer(r.Context()), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *categoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.categoryService.Delete(r.Context(), ctxkeys.Viewer(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

