package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps all storefront data in process. It backs the server when
// no database is reachable and is used by the service tests. The facets share
// one state, so a transaction opened through Carts also covers writes made
// through Products.
type MemoryStore struct {
	Products   *MemoryProductRepository
	Categories *MemoryCategoryRepository
	Addresses  *MemoryAddressRepository
	Carts      *MemoryCartRepository
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	s := &memoryState{
		products:   make(map[int64]*models.Product),
		categories: make(map[int64]*models.Category),
		addresses:  make(map[int64]*models.Address),
		carts:      make(map[int64]*models.Cart),
		items:      make(map[int64]*models.CartItem),
		seq:        make(map[string]int64),
	}
	return &MemoryStore{
		Products:   &MemoryProductRepository{s: s},
		Categories: &MemoryCategoryRepository{s: s},
		Addresses:  &MemoryAddressRepository{s: s},
		Carts:      &MemoryCartRepository{s: s},
	}
}

type memTxKey struct{}

type memoryState struct {
	// txMu serializes transactions and writes made outside of one.
	txMu sync.Mutex
	mu   sync.RWMutex

	products   map[int64]*models.Product
	categories map[int64]*models.Category
	addresses  map[int64]*models.Address
	carts      map[int64]*models.Cart // Items left nil, see items
	items      map[int64]*models.CartItem
	seq        map[string]int64
}

type memorySnapshot struct {
	products   map[int64]models.Product
	categories map[int64]models.Category
	addresses  map[int64]models.Address
	carts      map[int64]models.Cart
	items      map[int64]models.CartItem
	seq        map[string]int64
}

func copyMap[T any](src map[int64]*T) map[int64]T {
	dst := make(map[int64]T, len(src))
	for k, v := range src {
		dst[k] = *v
	}
	return dst
}

func restoreMap[T any](src map[int64]T) map[int64]*T {
	dst := make(map[int64]*T, len(src))
	for k, v := range src {
		v := v
		dst[k] = &v
	}
	return dst
}

func (s *memoryState) snapshot() *memorySnapshot {
	seq := make(map[string]int64, len(s.seq))
	for k, v := range s.seq {
		seq[k] = v
	}
	return &memorySnapshot{
		products:   copyMap(s.products),
		categories: copyMap(s.categories),
		addresses:  copyMap(s.addresses),
		carts:      copyMap(s.carts),
		items:      copyMap(s.items),
		seq:        seq,
	}
}

func (s *memoryState) restore(snap *memorySnapshot) {
	s.products = restoreMap(snap.products)
	s.categories = restoreMap(snap.categories)
	s.addresses = restoreMap(snap.addresses)
	s.carts = restoreMap(snap.carts)
	s.items = restoreMap(snap.items)
	s.seq = snap.seq
}

func inMemoryTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(bool)
	return ok
}

// withinTx runs fn with all other writers excluded and restores the previous
// state if fn fails.
func (s *memoryState) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.snapshot()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(saved)
		s.mu.Unlock()
		return err
	}
	return nil
}

// write applies fn under the write lock, joining the caller's transaction if any
func (s *memoryState) write(ctx context.Context, fn func() error) error {
	if !inMemoryTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *memoryState) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

func (s *memoryState) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// MemoryProductRepository is the in-memory product facet
type MemoryProductRepository struct {
	s *memoryState
}

// Create inserts a new product and fills in its generated fields
func (r *MemoryProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.products {
			if existing.Name == p.Name {
				return models.NewConflict("Product %s already exists", p.Name)
			}
		}
		now := time.Now()
		p.ID = r.s.nextID("products")
		p.CreatedAt, p.UpdatedAt = now, now
		stored := *p
		r.s.products[p.ID] = &stored
		return nil
	})
}

// GetByID retrieves a product by ID
func (r *MemoryProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var p *models.Product
	r.s.read(func() {
		if stored, ok := r.s.products[id]; ok {
			cp := *stored
			p = &cp
		}
	})
	if p == nil {
		return nil, models.ErrRecordNotFound
	}
	return p, nil
}

// GetByName retrieves a product by its exact name
func (r *MemoryProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	var p *models.Product
	r.s.read(func() {
		for _, stored := range r.s.products {
			if stored.Name == name {
				cp := *stored
				p = &cp
				return
			}
		}
	})
	if p == nil {
		return nil, models.ErrRecordNotFound
	}
	return p, nil
}

// GetByIDs retrieves the products with the given ids, keyed by id
func (r *MemoryProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	products := make(map[int64]*models.Product, len(ids))
	r.s.read(func() {
		for _, id := range ids {
			if stored, ok := r.s.products[id]; ok {
				cp := *stored
				products[id] = &cp
			}
		}
	})
	return products, nil
}

// Update writes the editable fields and pricing of a product
func (r *MemoryProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.products[p.ID]
		if !ok {
			return models.ErrRecordNotFound
		}
		for id, existing := range r.s.products {
			if id != p.ID && existing.Name == p.Name {
				return models.NewConflict("Product %s already exists", p.Name)
			}
		}
		p.CreatedAt = stored.CreatedAt
		p.UpdatedAt = time.Now()
		cp := *p
		r.s.products[p.ID] = &cp
		return nil
	})
}

// Delete removes a product that no cart references
func (r *MemoryProductRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.products[id]; !ok {
			return models.ErrRecordNotFound
		}
		for _, item := range r.s.items {
			if item.ProductID == id {
				return models.NewConflict("Product %d is still referenced by a cart", id)
			}
		}
		delete(r.s.products, id)
		return nil
	})
}

// Search returns a page of products matching filters and the total match count
func (r *MemoryProductRepository) Search(ctx context.Context, filters ProductSearchFilters) ([]*models.Product, int, error) {
	var matched []*models.Product
	keyword := strings.ToLower(filters.Keyword)

	r.s.read(func() {
		for _, stored := range r.s.products {
			if filters.CategoryID > 0 && stored.CategoryID != filters.CategoryID {
				continue
			}
			if keyword != "" && !strings.Contains(strings.ToLower(stored.Name), keyword) {
				continue
			}
			cp := *stored
			matched = append(matched, &cp)
		}
	})

	less := productLess(filters.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if filters.SortDesc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	total := len(matched)
	if filters.Offset >= total {
		return nil, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[filters.Offset:end], total, nil
}

func productLess(sortBy string) func(a, b *models.Product) bool {
	switch sortBy {
	case "name":
		return func(a, b *models.Product) bool { return a.Name < b.Name }
	case "price":
		return func(a, b *models.Product) bool { return a.Price.LessThan(b.Price) }
	case "special_price":
		return func(a, b *models.Product) bool { return a.SpecialPrice.LessThan(b.SpecialPrice) }
	case "created_at":
		return func(a, b *models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return func(a, b *models.Product) bool { return a.ID < b.ID }
	}
}

// MemoryCategoryRepository is the in-memory category facet
type MemoryCategoryRepository struct {
	s *memoryState
}

// Create creates a new category
func (r *MemoryCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.categories {
			if existing.Name == c.Name || existing.Slug == c.Slug {
				return models.NewConflict("Category with the name %s already exists", c.Name)
			}
		}
		c.ID = r.s.nextID("categories")
		c.CreatedAt = time.Now()
		cp := *c
		r.s.categories[c.ID] = &cp
		return nil
	})
}

// GetByID retrieves a category by ID
func (r *MemoryCategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var c *models.Category
	r.s.read(func() {
		if stored, ok := r.s.categories[id]; ok {
			cp := *stored
			c = &cp
		}
	})
	if c == nil {
		return nil, models.ErrRecordNotFound
	}
	return c, nil
}

// List returns all categories ordered by name
func (r *MemoryCategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	r.s.read(func() {
		for _, stored := range r.s.categories {
			cp := *stored
			categories = append(categories, &cp)
		}
	})
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// Update writes the name, slug and description of a category
func (r *MemoryCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.categories[c.ID]
		if !ok {
			return models.ErrRecordNotFound
		}
		for id, existing := range r.s.categories {
			if id != c.ID && (existing.Name == c.Name || existing.Slug == c.Slug) {
				return models.NewConflict("Category with the name %s already exists", c.Name)
			}
		}
		stored.Name = c.Name
		stored.Slug = c.Slug
		stored.Description = c.Description
		c.CreatedAt = stored.CreatedAt
		return nil
	})
}

// Delete removes a category that no product belongs to
func (r *MemoryCategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.categories[id]; !ok {
			return models.ErrRecordNotFound
		}
		for _, p := range r.s.products {
			if p.CategoryID == id {
				return models.NewConflict("Category %d still has products", id)
			}
		}
		delete(r.s.categories, id)
		return nil
	})
}

// MemoryAddressRepository is the in-memory address facet
type MemoryAddressRepository struct {
	s *memoryState
}

// Create creates a new address
func (r *MemoryAddressRepository) Create(ctx context.Context, a *models.Address) error {
	return r.s.write(ctx, func() error {
		now := time.Now()
		a.ID = r.s.nextID("addresses")
		a.CreatedAt, a.UpdatedAt = now, now
		cp := *a
		r.s.addresses[a.ID] = &cp
		return nil
	})
}

// GetByID retrieves an address by ID
func (r *MemoryAddressRepository) GetByID(ctx context.Context, id int64) (*models.Address, error) {
	var a *models.Address
	r.s.read(func() {
		if stored, ok := r.s.addresses[id]; ok {
			cp := *stored
			a = &cp
		}
	})
	if a == nil {
		return nil, models.ErrRecordNotFound
	}
	return a, nil
}

// List returns all addresses
func (r *MemoryAddressRepository) List(ctx context.Context) ([]*models.Address, error) {
	return r.filter(func(*models.Address) bool { return true }), nil
}

// ListByUser returns the addresses of a user
func (r *MemoryAddressRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Address, error) {
	return r.filter(func(a *models.Address) bool { return a.UserID == userID }), nil
}

func (r *MemoryAddressRepository) filter(keep func(*models.Address) bool) []*models.Address {
	var addresses []*models.Address
	r.s.read(func() {
		for _, stored := range r.s.addresses {
			if keep(stored) {
				cp := *stored
				addresses = append(addresses, &cp)
			}
		}
	})
	sort.Slice(addresses, func(i, j int) bool { return addresses[i].ID < addresses[j].ID })
	return addresses
}

// Update writes the editable fields of an address
func (r *MemoryAddressRepository) Update(ctx context.Context, a *models.Address) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.addresses[a.ID]
		if !ok {
			return models.ErrRecordNotFound
		}
		a.UserID = stored.UserID
		a.CreatedAt = stored.CreatedAt
		a.UpdatedAt = time.Now()
		cp := *a
		r.s.addresses[a.ID] = &cp
		return nil
	})
}

// Delete removes an address
func (r *MemoryAddressRepository) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.addresses[id]; !ok {
			return models.ErrRecordNotFound
		}
		delete(r.s.addresses, id)
		return nil
	})
}

// MemoryCartRepository is the in-memory cart facet
type MemoryCartRepository struct {
	s *memoryState
}

// WithinTx runs fn atomically against the store
func (r *MemoryCartRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.s.withinTx(ctx, fn)
}

// cartCopy returns a copy of the cart with its items. Caller holds mu.
func (r *MemoryCartRepository) cartCopy(stored *models.Cart) *models.Cart {
	cart := *stored
	cart.Items = nil
	for _, item := range r.s.items {
		if item.CartID == cart.ID {
			cp := *item
			cart.Items = append(cart.Items, &cp)
		}
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ID < cart.Items[j].ID })
	return &cart
}

// FindByUser retrieves the cart owned by userID together with its items
func (r *MemoryCartRepository) FindByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart *models.Cart
	r.s.read(func() {
		for _, stored := range r.s.carts {
			if stored.UserID == userID {
				cart = r.cartCopy(stored)
				return
			}
		}
	})
	if cart == nil {
		return nil, models.ErrRecordNotFound
	}
	return cart, nil
}

// FindByID retrieves a cart by ID together with its items
func (r *MemoryCartRepository) FindByID(ctx context.Context, cartID int64) (*models.Cart, error) {
	var cart *models.Cart
	r.s.read(func() {
		if stored, ok := r.s.carts[cartID]; ok {
			cart = r.cartCopy(stored)
		}
	})
	if cart == nil {
		return nil, models.ErrRecordNotFound
	}
	return cart, nil
}

// Create creates an empty cart for userID, or returns the existing one
func (r *MemoryCartRepository) Create(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart *models.Cart
	err := r.s.write(ctx, func() error {
		for _, stored := range r.s.carts {
			if stored.UserID == userID {
				cart = r.cartCopy(stored)
				return nil
			}
		}
		now := time.Now()
		stored := &models.Cart{
			ID:         r.s.nextID("carts"),
			UserID:     userID,
			TotalPrice: decimal.Zero,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.s.carts[stored.ID] = stored
		cart = r.cartCopy(stored)
		return nil
	})
	return cart, err
}

// Lock checks the cart exists. Transactions are already serialized.
func (r *MemoryCartRepository) Lock(ctx context.Context, cartID int64) error {
	var ok bool
	r.s.read(func() { _, ok = r.s.carts[cartID] })
	if !ok {
		return models.ErrRecordNotFound
	}
	return nil
}

// FindItem retrieves the line for (cartID, productID)
func (r *MemoryCartRepository) FindItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item *models.CartItem
	r.s.read(func() {
		for _, stored := range r.s.items {
			if stored.CartID == cartID && stored.ProductID == productID {
				cp := *stored
				item = &cp
				return
			}
		}
	})
	if item == nil {
		return nil, models.ErrRecordNotFound
	}
	return item, nil
}

// SaveItem inserts a new line (ID == 0) or updates an existing one
func (r *MemoryCartRepository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.s.write(ctx, func() error {
		now := time.Now()
		if item.ID == 0 {
			if _, ok := r.s.carts[item.CartID]; !ok {
				return models.ErrRecordNotFound
			}
			for _, stored := range r.s.items {
				if stored.CartID == item.CartID && stored.ProductID == item.ProductID {
					return models.NewConflict("product %d already exists in cart %d", item.ProductID, item.CartID)
				}
			}
			item.ID = r.s.nextID("cart_items")
			item.CreatedAt, item.UpdatedAt = now, now
			cp := *item
			r.s.items[item.ID] = &cp
			return nil
		}

		stored, ok := r.s.items[item.ID]
		if !ok {
			return models.ErrRecordNotFound
		}
		stored.Quantity = item.Quantity
		stored.Price = item.Price
		stored.Discount = item.Discount
		stored.UpdatedAt = now
		item.UpdatedAt = now
		return nil
	})
}

// DeleteItem removes a cart line
func (r *MemoryCartRepository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.items[itemID]; !ok {
			return models.ErrRecordNotFound
		}
		delete(r.s.items, itemID)
		return nil
	})
}

// Save persists the cart's total price
func (r *MemoryCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.carts[cart.ID]
		if !ok {
			return models.ErrRecordNotFound
		}
		now := time.Now()
		stored.TotalPrice = cart.TotalPrice
		stored.UpdatedAt = now
		cart.UpdatedAt = now
		return nil
	})
}

// ListAll returns every cart with its items, ordered by id
func (r *MemoryCartRepository) ListAll(ctx context.Context) ([]*models.Cart, error) {
	var carts []*models.Cart
	r.s.read(func() {
		for _, stored := range r.s.carts {
			carts = append(carts, r.cartCopy(stored))
		}
	})
	sort.Slice(carts, func(i, j int) bool { return carts[i].ID < carts[j].ID })
	return carts, nil
}

// ListCartIDsByProduct returns the ids of carts holding productID
func (r *MemoryCartRepository) ListCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error) {
	var ids []int64
	r.s.read(func() {
		for _, item := range r.s.items {
			if item.ProductID == productID {
				ids = append(ids, item.CartID)
			}
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
