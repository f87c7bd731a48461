package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newProductRouter(products *MockProductService) http.Handler {
	h := NewProductHandler(products, nil)
	r := chi.NewRouter()
	r.Get("/api/public/products", h.ListProducts)
	r.Get("/api/public/products/{productId}", h.GetProduct)
	r.Get("/api/public/products/keyword/{keyword}", h.SearchByKeyword)
	r.Get("/api/public/categories/{categoryId}/products", h.ListByCategory)
	r.Post("/api/admin/categories/{categoryId}/product", h.CreateProduct)
	r.Put("/api/admin/products/{productId}", h.UpdateProduct)
	r.Delete("/api/admin/products/{productId}", h.DeleteProduct)
	return r
}

func sendJSON(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestProductHandler_CreateProduct(t *testing.T) {
	products := new(MockProductService)
	products.On("CreateProduct", mock.Anything, int64(2), mock.MatchedBy(func(req *models.ProductRequest) bool {
		return req.Name == "Monitor" && req.Quantity == 5 &&
			req.Price.Equal(decimal.NewFromInt(100)) && req.Discount.Equal(decimal.NewFromInt(10))
	})).Return(&models.Product{ID: 9, Name: "Monitor", SpecialPrice: decimal.NewFromInt(90)}, nil)

	rr := sendJSON(newProductRouter(products), "POST", "/api/admin/categories/2/product",
		`{"product_name":"Monitor","quantity":5,"price":100,"discount":10}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"special_price":"90"`)
	products.AssertExpectations(t)
}

func TestProductHandler_CreateProduct_BadBody(t *testing.T) {
	products := new(MockProductService)
	router := newProductRouter(products)

	rr := sendJSON(router, "POST", "/api/admin/categories/2/product", `{"product_name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = sendJSON(router, "POST", "/api/admin/categories/2/product", `{"product_name":"Monitor","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	products.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_ListProducts_PageQuery(t *testing.T) {
	products := new(MockProductService)
	want := services.PageQuery{PageNumber: 2, PageSize: 10, SortBy: "price", SortOrder: "desc"}
	products.On("ListProducts", mock.Anything, want).Return(&models.ProductResponse{PageNumber: 2, PageSize: 10}, nil)
	products.On("ListProducts", mock.Anything, services.PageQuery{PageSize: services.DefaultPageSize}).
		Return(&models.ProductResponse{Content: []*models.Product{}}, nil)

	router := newProductRouter(products)

	rr := sendJSON(router, "GET", "/api/public/products?pageNumber=2&pageSize=10&sortBy=price&sortOrder=desc", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"page_number":2`)

	rr = sendJSON(router, "GET", "/api/public/products", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"content":[]`)

	rr = sendJSON(router, "GET", "/api/public/products?pageSize=ten", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid pageSize","code":400}`, rr.Body.String())
}

func TestProductHandler_SearchAndCategory(t *testing.T) {
	products := new(MockProductService)
	defaults := services.PageQuery{PageSize: services.DefaultPageSize}
	products.On("SearchByKeyword", mock.Anything, "lamp", defaults).Return(&models.ProductResponse{}, nil)
	products.On("ListByCategory", mock.Anything, int64(4), defaults).
		Return(nil, models.ResourceNotFound("Category", "categoryId", int64(4)))

	router := newProductRouter(products)

	assert.Equal(t, http.StatusOK, sendJSON(router, "GET", "/api/public/products/keyword/lamp", "").Code)
	assert.Equal(t, http.StatusNotFound, sendJSON(router, "GET", "/api/public/categories/4/products", "").Code)
	products.AssertExpectations(t)
}

func TestProductHandler_UpdateAndDelete(t *testing.T) {
	products := new(MockProductService)
	products.On("UpdateProduct", mock.Anything, int64(9), mock.AnythingOfType("*models.ProductRequest")).
		Return(&models.Product{ID: 9}, nil)
	products.On("DeleteProduct", mock.Anything, int64(9)).
		Return(nil, models.NewConflict("Product 9 is still referenced by a cart"))
	products.On("GetProduct", mock.Anything, int64(9)).Return(&models.Product{ID: 9, Name: "Monitor"}, nil)

	router := newProductRouter(products)

	rr := sendJSON(router, "PUT", "/api/admin/products/9", `{"product_name":"Monitor","quantity":1,"price":"99.99","discount":"0"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = sendJSON(router, "DELETE", "/api/admin/products/9", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = sendJSON(router, "GET", "/api/public/products/9", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"product_name":"Monitor"`)

	rr = sendJSON(router, "GET", "/api/public/products/0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
