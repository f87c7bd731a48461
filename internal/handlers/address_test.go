package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

const addressBody = `{"street":"12 Kenyatta Avenue","building_name":"Riverside Court","city":"Nairobi","state":"Nairobi","country":"Kenya","postal_code":"00100"}`

func newAddressRouter() http.Handler {
	h := NewAddressHandler(services.NewAddressService(repositories.NewMemoryStore().Addresses), nil)
	r := chi.NewRouter()
	r.Post("/api/addresses", h.CreateAddress)
	r.Get("/api/addresses", h.ListAddresses)
	r.Get("/api/addresses/{addressId}", h.GetAddress)
	r.Put("/api/addresses/{addressId}", h.UpdateAddress)
	r.Delete("/api/addresses/{addressId}", h.DeleteAddress)
	r.Get("/api/users/addresses", h.ListUserAddresses)
	return r
}

func sendAs(handler http.Handler, userID int64, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID > 0 {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAddressHandler_Lifecycle(t *testing.T) {
	router := newAddressRouter()

	rr := sendAs(router, 0, "POST", "/api/addresses", addressBody)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = sendAs(router, 5, "POST", "/api/addresses", addressBody)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"user_id":5`)

	rr = sendAs(router, 5, "GET", "/api/users/addresses", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"city":"Nairobi"`)

	rr = sendAs(router, 6, "GET", "/api/users/addresses", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = sendAs(router, 0, "PUT", "/api/addresses/1", strings.Replace(addressBody, "Nairobi\",\"state", "Mombasa\",\"state", 1))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"city":"Mombasa"`)

	rr = sendAs(router, 0, "GET", "/api/addresses", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = sendAs(router, 0, "DELETE", "/api/addresses/1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = sendAs(router, 0, "GET", "/api/addresses/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddressHandler_InvalidPostalCode(t *testing.T) {
	rr := sendAs(newAddressRouter(), 5, "POST", "/api/addresses", strings.Replace(addressBody, "00100", "#", 1))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"postal code format is invalid","code":400}`, rr.Body.String())
}
