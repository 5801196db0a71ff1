package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the persisted aggregate, one record per owner. Total is derived
// from the items and rewritten on every mutation, never read as-is after a
// partial update.
type Cart struct {
	UserID    uuid.UUID       `json:"user_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartItem keeps the name and price captured when the product was first
// added. Later catalog changes do not touch the snapshot.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
}
