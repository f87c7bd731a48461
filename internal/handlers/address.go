package handlers

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/services"

	"go.uber.org/zap"
)

// AddressHandler handles address book requests
type AddressHandler struct {
	addresses services.AddressServiceInterface
	logger    *zap.Logger
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addresses services.AddressServiceInterface, logger *zap.Logger) *AddressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressHandler{addresses: addresses, logger: logger}
}

// CreateAddress stores an address for the current user
func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	address, err := h.addresses.CreateAddress(r.Context(), userID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, address)
}

// ListAddresses returns every address
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.addresses.ListAddresses(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, addresses)
}

// GetAddress returns one address
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := pathID(r, "addressId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	address, err := h.addresses.GetAddress(r.Context(), addressID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, address)
}

// ListUserAddresses returns the current user's addresses
func (h *AddressHandler) ListUserAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	addresses, err := h.addresses.ListUserAddresses(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, addresses)
}

// UpdateAddress replaces an address
func (h *AddressHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := pathID(r, "addressId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req models.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	address, err := h.addresses.UpdateAddress(r.Context(), addressID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, address)
}

// DeleteAddress removes an address
func (h *AddressHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := pathID(r, "addressId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	address, err := h.addresses.DeleteAddress(r.Context(), addressID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, address)
}
