package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productResponse "github.com/obarbosa/mercadinho/product/pkg/response"
)

type Cart struct {
	UserID    uuid.UUID       `json:"user_id"`
	CartItems []CartItem      `json:"cart_items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
}

// PopulatedCart is the read-side projection: each surviving item carries the
// live product record instead of the stored snapshot. Total stays the stored
// aggregate, so it can diverge from the visible sum when items were dropped
// by a dangling product reference.
type PopulatedCart struct {
	UserID    uuid.UUID       `json:"user_id"`
	CartItems []PopulatedItem `json:"cart_items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type PopulatedItem struct {
	ProductID uuid.UUID               `json:"product_id"`
	Product   productResponse.Product `json:"product"`
	Quantity  int32                   `json:"quantity"`
}
