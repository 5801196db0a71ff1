package request

import (
	"github.com/google/uuid"
)

type AddItem struct {
	ProductId uuid.UUID `validate:"required,uuid"  json:"product_id"`
	Quantity  int32     `validate:"required,gte=1" json:"quantity"`
}

type UpdateQuantity struct {
	Quantity int32 `validate:"required,gte=1" json:"quantity"`
}
