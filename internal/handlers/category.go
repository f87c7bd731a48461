package handlers

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/services"

	"go.uber.org/zap"
)

// CategoryHandler handles category requests
type CategoryHandler struct {
	categories services.CategoryServiceInterface
	logger     *zap.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories services.CategoryServiceInterface, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryHandler{categories: categories, logger: logger}
}

// ListCategories returns all categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a category
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	category, err := h.categories.CreateCategory(r.Context(), &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// UpdateCategory renames a category
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req models.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	category, err := h.categories.UpdateCategory(r.Context(), categoryID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	category, err := h.categories.DeleteCategory(r.Context(), categoryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}
