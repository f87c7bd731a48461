package handlers

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles catalog requests
type ProductHandler struct {
	products services.ProductServiceInterface
	logger   *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products services.ProductServiceInterface, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{products: products, logger: logger}
}

// CreateProduct adds a product to the category in the path
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req models.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	product, err := h.products.CreateProduct(r.Context(), categoryID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListProducts returns a page of products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.products.ListProducts(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListByCategory returns a page of one category's products
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := pageQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.products.ListByCategory(r.Context(), categoryID, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SearchByKeyword returns a page of products matching the keyword
func (h *ProductHandler) SearchByKeyword(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.products.SearchByKeyword(r.Context(), chi.URLParam(r, "keyword"), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// UpdateProduct replaces a product's editable fields
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req models.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), productID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	product, err := h.products.DeleteProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
