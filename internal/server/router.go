package server

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers the router dispatches to
type Handlers struct {
	Cart     *handlers.CartHandler
	Product  *handlers.ProductHandler
	Category *handlers.CategoryHandler
	Address  *handlers.AddressHandler
	Health   *handlers.HealthHandler
}

// Options configures the router's middleware stack
type Options struct {
	Logger      *zap.Logger
	Identity    *middleware.IdentityMiddleware
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
}

// NewRouter builds the storefront API router
func NewRouter(opts Options, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(opts.Identity.LoadUser)
	r.Use(middleware.LoggingMiddleware(opts.Logger))
	r.Use(middleware.RecoveryMiddleware(opts.Logger))
	r.Use(middleware.CORSMiddleware(opts.CORS))
	r.Use(middleware.SecurityHeadersMiddleware)

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		setupCartRoutes(r, opts, h.Cart)
		setupCatalogRoutes(r, h.Product, h.Category)
		setupAddressRoutes(r, h.Address)
	})

	return r
}

func setupCartRoutes(r chi.Router, opts Options, h *handlers.CartHandler) {
	r.Get("/carts", h.ListCarts)
	r.Delete("/carts/{cartId}/product/{productId}", h.RemoveProduct)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		if opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(opts.RateLimiter))
		}

		r.Get("/carts/users/cart", h.GetUserCart)
		r.Post("/carts/products/{productId}/quantity/{quantity}", h.AddProduct)
		r.Put("/carts/products/{productId}/quantity/{quantity}", h.UpdateQuantity)
	})
}

func setupCatalogRoutes(r chi.Router, products *handlers.ProductHandler, categories *handlers.CategoryHandler) {
	r.Route("/public", func(r chi.Router) {
		r.Get("/categories", categories.ListCategories)
		r.Get("/categories/{categoryId}/products", products.ListByCategory)
		r.Get("/products", products.ListProducts)
		r.Get("/products/{productId}", products.GetProduct)
		r.Get("/products/keyword/{keyword}", products.SearchByKeyword)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/categories", categories.CreateCategory)
		r.Put("/categories/{categoryId}", categories.UpdateCategory)
		r.Delete("/categories/{categoryId}", categories.DeleteCategory)
		r.Post("/categories/{categoryId}/product", products.CreateProduct)
		r.Put("/products/{productId}", products.UpdateProduct)
		r.Delete("/products/{productId}", products.DeleteProduct)
	})
}

func setupAddressRoutes(r chi.Router, h *handlers.AddressHandler) {
	r.Get("/addresses", h.ListAddresses)
	r.Get("/addresses/{addressId}", h.GetAddress)
	r.Put("/addresses/{addressId}", h.UpdateAddress)
	r.Delete("/addresses/{addressId}", h.DeleteAddress)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/addresses", h.CreateAddress)
		r.Get("/users/addresses", h.ListUserAddresses)
	})
}
