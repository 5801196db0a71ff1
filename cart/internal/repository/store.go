package repository

import (
	"context"

	"github.com/google/uuid"
)

// CartStore is the persistence contract the cart service operates on.
// FindByOwner returns errors.ErrCartNotFound when no record exists; Save is
// replace-or-insert; Delete returns errors.ErrCartNotFound when there was
// nothing to delete.
//
// WithOwnerLock runs fn against a store view that holds an exclusive
// per-owner scope for the whole call, so a load-mutate-persist sequence
// inside fn cannot interleave with another writer of the same owner.
// Writes to one owner's cart are linearizable with respect to each other;
// carts of different owners are never serialized against one another.
type CartStore interface {
	FindByOwner(c context.Context, owner uuid.UUID) (Cart, error)
	Save(c context.Context, cart Cart) error
	Delete(c context.Context, owner uuid.UUID) error
	ListAll(c context.Context) ([]Cart, error)
	WithOwnerLock(c context.Context, owner uuid.UUID, fn func(c context.Context, store CartStore) error) error
}
