package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"storefront/internal/cache"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CartStore interface for cart data operations. Methods called with a
// context returned by WithinTx take part in that transaction.
type CartStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindByUser(ctx context.Context, userID int64) (*models.Cart, error)
	FindByID(ctx context.Context, cartID int64) (*models.Cart, error)
	Create(ctx context.Context, userID int64) (*models.Cart, error)
	Lock(ctx context.Context, cartID int64) error
	FindItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID int64) error
	Save(ctx context.Context, cart *models.Cart) error
	ListAll(ctx context.Context) ([]*models.Cart, error)
	ListCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error)
}

// ProductCatalog interface for the product reads the cart needs
type ProductCatalog interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

// reconcileConcurrency bounds the carts reconciled in parallel for one product
const reconcileConcurrency = 4

// CartService keeps carts and their totals consistent with the catalog
type CartService struct {
	store   CartStore
	catalog ProductCatalog
	cache   cache.CartCache
	locks   *cartLocks
	gens    cartGenerations
	reads   singleflight.Group
	logger  *zap.Logger
}

// NewCartService creates a new cart service. A nil cache disables caching and
// a nil logger discards logs.
func NewCartService(store CartStore, catalog ProductCatalog, cartCache cache.CartCache, logger *zap.Logger) *CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		store:   store,
		catalog: catalog,
		cache:   cartCache,
		locks:   newCartLocks(),
		logger:  logger.Named("cart"),
	}
}

// AddToCart puts a product the user does not have in their cart yet. The cart
// is created on first use.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartSnapshot, error) {
	if quantity <= 0 {
		return nil, models.NewInvalidInput("Quantity must be greater than zero")
	}

	cart, err := s.store.FindByUser(ctx, userID)
	if errors.Is(err, models.ErrRecordNotFound) {
		cart, err = s.store.Create(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart: %w", err)
	}

	var snapshot *models.CartSnapshot
	err = s.withCart(ctx, cart.ID, func(ctx context.Context, cart *models.Cart) error {
		product, err := s.product(ctx, productID)
		if err != nil {
			return err
		}

		if _, err := s.store.FindItem(ctx, cart.ID, productID); err == nil {
			return models.NewConflict("Product %s already exists in the cart", product.Name)
		} else if !errors.Is(err, models.ErrRecordNotFound) {
			return fmt.Errorf("failed to get cart item: %w", err)
		}

		if !product.InStock() {
			return models.NewInvalidState("Product %s is not available", product.Name)
		}
		if quantity > product.Quantity {
			return models.NewInvalidState("Please, make an order of the %s less than or equal to the quantity %d",
				product.Name, product.Quantity)
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.SpecialPrice,
			Discount:  product.Discount,
		}
		if err := s.store.SaveItem(ctx, item); err != nil {
			return err
		}
		cart.PutItem(item)

		cart.TotalPrice = cart.TotalPrice.Add(product.SpecialPrice.Mul(decimal.NewFromInt(int64(quantity))))
		if err := s.store.Save(ctx, cart); err != nil {
			return err
		}

		snapshot, err = s.snapshot(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("product added to cart",
		zap.Int64("user_id", userID),
		zap.Int64("cart_id", cart.ID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return snapshot, nil
}

// UpdateQuantity changes the quantity of a product already in the user's
// cart by delta. A line whose quantity drops to zero or below is removed.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, delta int) (*models.CartSnapshot, error) {
	if delta == 0 {
		return nil, models.NewInvalidInput("Quantity change must not be zero")
	}

	cart, err := s.store.FindByUser(ctx, userID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, models.ResourceNotFound("Cart", "userId", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var snapshot *models.CartSnapshot
	err = s.withCart(ctx, cart.ID, func(ctx context.Context, cart *models.Cart) error {
		product, err := s.product(ctx, productID)
		if err != nil {
			return err
		}

		if !product.InStock() {
			return models.NewInvalidState("Product %s is not available", product.Name)
		}
		if abs(delta) > product.Quantity {
			return models.NewInvalidState("Please, make an order of the %s less than or equal to the quantity %d",
				product.Name, product.Quantity)
		}

		item, err := s.store.FindItem(ctx, cart.ID, productID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.NewInvalidState("Product %s is not available in the cart", product.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to get cart item: %w", err)
		}

		applied := delta
		if newQuantity := item.Quantity + delta; newQuantity <= 0 {
			// Only the units actually in the cart come off the total.
			applied = -item.Quantity
			if err := s.store.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
			cart.RemoveItem(productID)
		} else {
			item.Quantity = newQuantity
			item.Price = product.SpecialPrice
			item.Discount = product.Discount
			if err := s.store.SaveItem(ctx, item); err != nil {
				return err
			}
			cart.PutItem(item)
		}

		s.adjustTotal(cart, product.SpecialPrice.Mul(decimal.NewFromInt(int64(applied))))
		if err := s.store.Save(ctx, cart); err != nil {
			return err
		}

		snapshot, err = s.snapshot(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RemoveFromCart deletes a product's line from a cart and returns a
// confirmation message naming the product.
func (s *CartService) RemoveFromCart(ctx context.Context, cartID, productID int64) (string, error) {
	var name string

	err := s.withCart(ctx, cartID, func(ctx context.Context, cart *models.Cart) error {
		item, err := s.store.FindItem(ctx, cart.ID, productID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.ResourceNotFound("Product", "productId", productID)
		}
		if err != nil {
			return fmt.Errorf("failed to get cart item: %w", err)
		}

		if err := s.store.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		cart.RemoveItem(productID)

		s.adjustTotal(cart, item.Subtotal().Neg())
		if err := s.store.Save(ctx, cart); err != nil {
			return err
		}

		name = s.productName(ctx, productID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s removed from cart", name), nil
}

// ReconcileCartItem refreshes a line's price and discount snapshot from the
// catalog and moves the cart total by the difference.
func (s *CartService) ReconcileCartItem(ctx context.Context, cartID, productID int64) error {
	return s.withCart(ctx, cartID, func(ctx context.Context, cart *models.Cart) error {
		product, err := s.product(ctx, productID)
		if err != nil {
			return err
		}

		item, err := s.store.FindItem(ctx, cart.ID, productID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.NewInvalidState("Product %s is not available in the cart", product.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to get cart item: %w", err)
		}

		oldSubtotal := item.Subtotal()
		item.Price = product.SpecialPrice
		item.Discount = product.Discount
		if err := s.store.SaveItem(ctx, item); err != nil {
			return err
		}
		cart.PutItem(item)

		s.adjustTotal(cart, item.Subtotal().Sub(oldSubtotal))
		return s.store.Save(ctx, cart)
	})
}

// ReconcileProduct reconciles every cart holding productID and returns how
// many were updated. Lines removed since the carts were listed are skipped.
func (s *CartService) ReconcileProduct(ctx context.Context, productID int64) (int, error) {
	cartIDs, err := s.store.ListCartIDsByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to list carts for product %d: %w", productID, err)
	}

	var reconciled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	for _, cartID := range cartIDs {
		cartID := cartID
		g.Go(func() error {
			err := s.ReconcileCartItem(gctx, cartID, productID)
			if errors.Is(err, models.ErrInvalidState) || errors.Is(err, models.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("cart %d: %w", cartID, err)
			}
			reconciled.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(reconciled.Load()), err
	}
	return int(reconciled.Load()), nil
}

// ListAllCarts returns a snapshot of every cart. An empty store is reported
// as an error.
func (s *CartService) ListAllCarts(ctx context.Context) ([]*models.CartSnapshot, error) {
	carts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	if len(carts) == 0 {
		return nil, models.NewInvalidState("No carts found")
	}

	products, err := s.catalog.GetByIDs(ctx, productIDs(carts...))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	snapshots := make([]*models.CartSnapshot, 0, len(carts))
	for _, cart := range carts {
		snapshots = append(snapshots, s.assemble(cart, products))
	}
	return snapshots, nil
}

// GetCart returns the user's cart, served from the cache when possible.
// Concurrent misses for the same user share one load.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.CartSnapshot, error) {
	snapshot, err := s.cache.Get(ctx, userID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	v, err, _ := s.reads.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		gen := s.gens.current(userID)

		cart, err := s.store.FindByUser(ctx, userID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Cart", "userId", userID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get cart: %w", err)
		}

		snapshot, err := s.snapshot(ctx, cart)
		if err != nil {
			return nil, err
		}

		filled := s.gens.fill(userID, gen, func() {
			if err := s.cache.Set(ctx, userID, snapshot); err != nil {
				s.logger.Warn("cart cache write failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		})
		if !filled {
			s.logger.Debug("cart changed during read, not cached", zap.Int64("user_id", userID))
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CartSnapshot), nil
}

// withCart serializes fn against other writers of the same cart: an
// in-process mutex, then a transaction holding the cart's row lock. fn
// receives the cart as read inside the transaction. The owner's cached
// snapshot is dropped once the transaction ends, whatever its outcome.
func (s *CartService) withCart(ctx context.Context, cartID int64, fn func(ctx context.Context, cart *models.Cart) error) error {
	unlock := s.locks.lock(cartID)
	defer unlock()

	var userID int64
	defer func() {
		if userID != 0 {
			s.invalidate(ctx, userID)
		}
	}()

	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		err := s.store.Lock(ctx, cartID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.ResourceNotFound("Cart", "cartId", cartID)
		}
		if err != nil {
			return err
		}

		cart, err := s.store.FindByID(ctx, cartID)
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.ResourceNotFound("Cart", "cartId", cartID)
		}
		if err != nil {
			return err
		}

		// A read overlapping this write must not be cached.
		userID = cart.UserID
		s.gens.bump(userID)

		return fn(ctx, cart)
	})
}

// adjustTotal moves the cart total by delta. An emptied cart is reset to
// zero and the total never goes negative.
func (s *CartService) adjustTotal(cart *models.Cart, delta decimal.Decimal) {
	cart.TotalPrice = cart.TotalPrice.Add(delta)

	if len(cart.Items) == 0 || cart.TotalPrice.IsNegative() {
		cart.TotalPrice = decimal.Zero
	}

	if sum := cart.ItemsTotal(); !sum.Equal(cart.TotalPrice) {
		s.logger.Debug("cart total differs from line items",
			zap.Int64("cart_id", cart.ID),
			zap.String("total", cart.TotalPrice.String()),
			zap.String("items_total", sum.String()),
		)
	}
}

func (s *CartService) product(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.catalog.GetByID(ctx, productID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, models.ResourceNotFound("Product", "productId", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CartService) productName(ctx context.Context, productID int64) string {
	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return fmt.Sprintf("Product %d", productID)
	}
	return product.Name
}

func (s *CartService) snapshot(ctx context.Context, cart *models.Cart) (*models.CartSnapshot, error) {
	products, err := s.catalog.GetByIDs(ctx, productIDs(cart))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return s.assemble(cart, products), nil
}

// assemble builds the snapshot in item order, overlaying each product with
// the quantity held in the cart
func (s *CartService) assemble(cart *models.Cart, products map[int64]*models.Product) *models.CartSnapshot {
	snapshot := &models.CartSnapshot{
		CartID:     cart.ID,
		TotalPrice: cart.TotalPrice,
		Products:   make([]models.ProductView, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			s.logger.Warn("cart item references unknown product",
				zap.Int64("cart_id", cart.ID),
				zap.Int64("product_id", item.ProductID),
			)
			continue
		}
		snapshot.Products = append(snapshot.Products, models.NewProductView(product, item.Quantity))
	}
	return snapshot
}

func (s *CartService) invalidate(ctx context.Context, userID int64) {
	s.gens.invalidate(userID, func() {
		if err := s.cache.Delete(context.WithoutCancel(ctx), userID); err != nil {
			s.logger.Warn("cart cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	})
}

func productIDs(carts ...*models.Cart) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, cart := range carts {
		for _, item := range cart.Items {
			if !seen[item.ProductID] {
				seen[item.ProductID] = true
				ids = append(ids, item.ProductID)
			}
		}
	}
	return ids
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
