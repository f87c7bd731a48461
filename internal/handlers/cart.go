package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartHandler handles shopping cart requests
type CartHandler struct {
	carts  services.CartServiceInterface
	logger *zap.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts services.CartServiceInterface, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{carts: carts, logger: logger}
}

// AddProduct adds quantity units of a product to the current user's cart
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	quantity, err := strconv.Atoi(chi.URLParam(r, "quantity"))
	if err != nil {
		badRequest(w, "Invalid quantity")
		return
	}

	cart, err := h.carts.AddToCart(r.Context(), userID, productID, quantity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

// ListCarts returns every cart
func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.carts.ListAllCarts(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, carts)
}

// GetUserCart returns the current user's cart
func (h *CartHandler) GetUserCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateQuantity increments the line by one, or decrements it when the
// operation is "delete"
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// PUT shares the {quantity} segment with POST and carries the operation
	delta := 1
	if strings.EqualFold(chi.URLParam(r, "quantity"), "delete") {
		delta = -1
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), userID, productID, delta)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveProduct deletes a line from a cart
func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	cartID, err := pathID(r, "cartId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	message, err := h.carts.RemoveFromCart(r.Context(), cartID, productID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}
