package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obarbosa/mercadinho/cart/internal/repository"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	productResponse "github.com/obarbosa/mercadinho/product/pkg/response"
)

// memoryCartStore keeps carts in a map and serializes WithOwnerLock callers
// per owner with a mutex, mirroring the advisory lock of the postgres store.
type memoryCartStore struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	carts map[uuid.UUID]repository.Cart
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{
		locks: map[uuid.UUID]*sync.Mutex{},
		carts: map[uuid.UUID]repository.Cart{},
	}
}

func (s *memoryCartStore) FindByOwner(c context.Context, owner uuid.UUID) (repository.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[owner]
	if !ok {
		return repository.Cart{}, fmt.Errorf("cart of userId=%s with error=%w", owner.String(), inErrors.ErrCartNotFound)
	}
	copied := cart
	copied.Items = append([]repository.CartItem{}, cart.Items...)
	return copied, nil
}

func (s *memoryCartStore) Save(c context.Context, cart repository.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := cart
	copied.Items = append([]repository.CartItem{}, cart.Items...)
	s.carts[cart.UserID] = copied
	return nil
}

func (s *memoryCartStore) Delete(c context.Context, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[owner]; !ok {
		return fmt.Errorf("cart of userId=%s with error=%w", owner.String(), inErrors.ErrCartNotFound)
	}
	delete(s.carts, owner)
	return nil
}

func (s *memoryCartStore) ListAll(c context.Context) ([]repository.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	carts := make([]repository.Cart, 0, len(s.carts))
	for _, cart := range s.carts {
		copied := cart
		copied.Items = append([]repository.CartItem{}, cart.Items...)
		carts = append(carts, copied)
	}
	return carts, nil
}

func (s *memoryCartStore) WithOwnerLock(
	c context.Context,
	owner uuid.UUID,
	fn func(c context.Context, store repository.CartStore) error,
) error {
	s.mu.Lock()
	lock, ok := s.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[owner] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(c, s)
}

// gatedCartStore pauses the first FindByOwner so a test can schedule a
// competing writer while a load-mutate-persist sequence is mid-flight.
type gatedCartStore struct {
	*memoryCartStore
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCartStore() *gatedCartStore {
	return &gatedCartStore{
		memoryCartStore: newMemoryCartStore(),
		loaded:          make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (s *gatedCartStore) FindByOwner(c context.Context, owner uuid.UUID) (repository.Cart, error) {
	cart, err := s.memoryCartStore.FindByOwner(c, owner)
	s.once.Do(func() {
		close(s.loaded)
		<-s.release
	})
	return cart, err
}

func (s *gatedCartStore) WithOwnerLock(
	c context.Context,
	owner uuid.UUID,
	fn func(c context.Context, store repository.CartStore) error,
) error {
	return s.memoryCartStore.WithOwnerLock(c, owner, func(c context.Context, _ repository.CartStore) error {
		return fn(c, s)
	})
}

type memoryProductFinder struct {
	mu       sync.Mutex
	products map[uuid.UUID]productResponse.Product
}

func newMemoryProductFinder(products ...productResponse.Product) *memoryProductFinder {
	finder := &memoryProductFinder{products: map[uuid.UUID]productResponse.Product{}}
	for _, product := range products {
		finder.products[product.ID] = product
	}
	return finder
}

func (f *memoryProductFinder) FindProductById(
	c context.Context,
	id uuid.UUID,
) (productResponse.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok {
		return productResponse.Product{}, fmt.Errorf("productId=%s with error=%w", id.String(), inErrors.ErrProductNotFound)
	}
	return product, nil
}

func (f *memoryProductFinder) setPrice(id uuid.UUID, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product := f.products[id]
	product.Price = price
	f.products[id] = product
}

func (f *memoryProductFinder) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

func newProduct(name string, price string) productResponse.Product {
	return productResponse.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}
