package repository

import (
	"github.com/obarbosa/mercadinho/cart/pkg/response"
)

func (c Cart) Response() response.Cart {
	items := make([]response.CartItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = response.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	return response.Cart{
		UserID:    c.UserID,
		CartItems: items,
		Total:     c.Total,
		UpdatedAt: c.UpdatedAt,
	}
}
