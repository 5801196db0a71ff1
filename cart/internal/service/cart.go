package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/obarbosa/mercadinho/cart/internal/otel"
	"github.com/obarbosa/mercadinho/cart/internal/repository"
	"github.com/obarbosa/mercadinho/cart/pkg/request"
	"github.com/obarbosa/mercadinho/cart/pkg/response"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	"github.com/obarbosa/mercadinho/internal/log"
	inOtel "github.com/obarbosa/mercadinho/internal/otel"
	productResponse "github.com/obarbosa/mercadinho/product/pkg/response"
)

// ProductFinder resolves a product id to the current catalog record.
// Implementations return errors.ErrProductNotFound when the id does not
// resolve.
type ProductFinder interface {
	FindProductById(c context.Context, id uuid.UUID) (productResponse.Product, error)
}

// CartService holds the cart state-transition rules: one cart per owner,
// one line item per product, total always recomputed from the items. It
// carries no coordination of its own; per-owner serialization is delegated
// to the store's WithOwnerLock scope, and collaborator failures propagate
// without retries.
type CartService struct {
	store    repository.CartStore
	products ProductFinder
}

func NewCartService(store repository.CartStore, products ProductFinder) CartService {
	return CartService{store: store, products: products}
}

func (s CartService) AddItem(
	c context.Context,
	userId uuid.UUID,
	param request.AddItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyUserID, userId.String()).
		Str(log.KeyProductID, param.ProductId.String()).
		Int32(log.KeyQuantity, param.Quantity).
		Logger()

	if param.Quantity < 1 {
		err := fmt.Errorf("quantity=%d with error=%w", param.Quantity, inErrors.ErrInvalidQuantity)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Info().Msgf("finding productId=%s", param.ProductId.String())
	product, err := s.products.FindProductById(c, param.ProductId)
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", param.ProductId.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msgf("found productId=%s", param.ProductId.String())

	logger = logger.With().Str(log.KeyProcess, "merging item into cart").Logger()
	logger.Info().Msg("merging item into cart")
	span.AddEvent("merging item into cart")
	c = logger.WithContext(c)
	out := repository.Cart{}
	err = s.store.WithOwnerLock(c, userId, func(c context.Context, store repository.CartStore) error {
		cart, err := store.FindByOwner(c, userId)
		if errors.Is(err, inErrors.ErrCartNotFound) {
			cart = repository.Cart{UserID: userId, Items: []repository.CartItem{}}
		} else if err != nil {
			return err
		}

		merged := false
		for i, item := range cart.Items {
			if item.ProductID != param.ProductId {
				continue
			}
			// first-price-wins: only the quantity moves, the snapshot stays
			cart.Items[i].Quantity = item.Quantity + param.Quantity
			merged = true
			break
		}
		if !merged {
			cart.Items = append(cart.Items, repository.CartItem{
				ProductID: param.ProductId,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  param.Quantity,
			})
		}

		cart.Total = recomputeTotal(cart.Items)
		cart.UpdatedAt = time.Now()
		if err := store.Save(c, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed adding item to cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger = logger.With().
		Int(log.KeyCartItems, len(out.Items)).
		Str(log.KeyCartTotal, out.Total.String()).
		Logger()
	logger.Info().Msg("merged item into cart")
	span.AddEvent("merged item into cart")

	return out.Response(), nil
}

func (s CartService) RemoveItem(
	c context.Context,
	userId uuid.UUID,
	productId uuid.UUID,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Str(log.KeyUserID, userId.String()).
		Str(log.KeyProductID, productId.String()).
		Str(log.KeyProcess, "removing item from cart").
		Logger()

	logger.Info().Msg("removing item from cart")
	c = logger.WithContext(c)
	out := repository.Cart{}
	err := s.store.WithOwnerLock(c, userId, func(c context.Context, store repository.CartStore) error {
		cart, err := store.FindByOwner(c, userId)
		if err != nil {
			return err
		}

		remaining := make([]repository.CartItem, 0, len(cart.Items))
		found := false
		for _, item := range cart.Items {
			if item.ProductID == productId {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return fmt.Errorf("productId=%s with error=%w", productId.String(), inErrors.ErrCartItemNotFound)
		}

		cart.Items = remaining
		cart.Total = recomputeTotal(cart.Items)
		cart.UpdatedAt = time.Now()
		if err := store.Save(c, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed removing item from cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item from cart")

	return out.Response(), nil
}

func (s CartService) UpdateQuantity(
	c context.Context,
	userId uuid.UUID,
	productId uuid.UUID,
	quantity int32,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService UpdateQuantity").
		Str(log.KeyUserID, userId.String()).
		Str(log.KeyProductID, productId.String()).
		Int32(log.KeyQuantity, quantity).
		Logger()

	// same rule as AddItem; a zero quantity is not a removal
	if quantity < 1 {
		err := fmt.Errorf("quantity=%d with error=%w", quantity, inErrors.ErrInvalidQuantity)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "updating item quantity").Logger()
	logger.Info().Msg("updating item quantity")
	c = logger.WithContext(c)
	out := repository.Cart{}
	err := s.store.WithOwnerLock(c, userId, func(c context.Context, store repository.CartStore) error {
		cart, err := store.FindByOwner(c, userId)
		if err != nil {
			return err
		}

		found := false
		for i, item := range cart.Items {
			if item.ProductID != productId {
				continue
			}
			cart.Items[i].Quantity = quantity
			found = true
			break
		}
		if !found {
			return fmt.Errorf("productId=%s with error=%w", productId.String(), inErrors.ErrCartItemNotFound)
		}

		cart.Total = recomputeTotal(cart.Items)
		cart.UpdatedAt = time.Now()
		if err := store.Save(c, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed updating item quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated item quantity")

	return out.Response(), nil
}

// FindCartByOwner returns the owner's cart populated with live product
// records. A missing cart is not an error on this path: the caller gets an
// empty item list. Items whose product no longer resolves are dropped from
// the projection; the stored total is returned untouched.
func (s CartService) FindCartByOwner(
	c context.Context,
	userId uuid.UUID,
) (response.PopulatedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService FindCartByOwner")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService FindCartByOwner").
		Str(log.KeyUserID, userId.String()).
		Str(log.KeyProcess, "finding cart").
		Logger()

	logger.Info().Msg("finding cart")
	cart, err := s.store.FindByOwner(c, userId)
	if errors.Is(err, inErrors.ErrCartNotFound) {
		logger.Info().Msg("cart not found, returning empty cart")
		return response.PopulatedCart{
			UserID:    userId,
			CartItems: []response.PopulatedItem{},
			Total:     decimal.Zero,
		}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PopulatedCart{}, err
	}
	logger.Info().Msg("found cart")

	logger = logger.With().Str(log.KeyProcess, "populating cart").Logger()
	logger.Info().Msg("populating cart")
	c = logger.WithContext(c)
	populated, err := s.populate(c, cart)
	if err != nil {
		err = fmt.Errorf("failed populating cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PopulatedCart{}, err
	}
	logger.Info().Msg("populated cart")

	return populated, nil
}

func (s CartService) DeleteCart(c context.Context, owner uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "CartService DeleteCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService DeleteCart").
		Str(log.KeyUserID, owner.String()).
		Str(log.KeyProcess, "deleting cart").
		Logger()

	logger.Info().Msg("deleting cart")
	c = logger.WithContext(c)
	err := s.store.WithOwnerLock(c, owner, func(c context.Context, store repository.CartStore) error {
		return store.Delete(c, owner)
	})
	if err != nil {
		err = fmt.Errorf("failed deleting cart of userId=%s with error=%w", owner.String(), err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted cart")

	return nil
}

// ListAllCarts is the administrative listing: every stored cart, populated
// with the same lossy projection rule as FindCartByOwner.
func (s CartService) ListAllCarts(c context.Context) ([]response.PopulatedCart, error) {
	c, span := otel.Tracer.Start(c, "CartService ListAllCarts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ListAllCarts").
		Str(log.KeyProcess, "listing carts").
		Logger()

	logger.Info().Msg("listing carts")
	carts, err := s.store.ListAll(c)
	if err != nil {
		err = fmt.Errorf("failed listing carts with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("listed %d carts", len(carts))

	logger = logger.With().Str(log.KeyProcess, "populating carts").Logger()
	logger.Info().Msg("populating carts")
	c = logger.WithContext(c)
	populated := make([]response.PopulatedCart, 0, len(carts))
	for _, cart := range carts {
		p, err := s.populate(c, cart)
		if err != nil {
			err = fmt.Errorf("failed populating cart of userId=%s with error=%w", cart.UserID.String(), err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		populated = append(populated, p)
	}
	logger.Info().Msg("populated carts")

	return populated, nil
}

func (s CartService) populate(
	c context.Context,
	cart repository.Cart,
) (response.PopulatedCart, error) {
	logger := zerolog.Ctx(c)

	items := make([]response.PopulatedItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.FindProductById(c, item.ProductID)
		if errors.Is(err, inErrors.ErrProductNotFound) {
			// dangling reference: the product left the catalog after the
			// item was added. Dropped from the view, kept in the record.
			logger.Info().
				Str(log.KeyProductID, item.ProductID.String()).
				Msg("product no longer resolves, omitting item")
			continue
		}
		if err != nil {
			return response.PopulatedCart{}, err
		}
		items = append(items, response.PopulatedItem{
			ProductID: item.ProductID,
			Product:   product,
			Quantity:  item.Quantity,
		})
	}
	return response.PopulatedCart{
		UserID:    cart.UserID,
		CartItems: items,
		Total:     cart.Total,
		UpdatedAt: cart.UpdatedAt,
	}, nil
}

func recomputeTotal(items []repository.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total
}
