package cart

import (
	cartdto "github.com/angelmondragon/marketplace-cart/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
)

func toProduct(payload cartdto.AddProductRequest) cartsvc.Product {
	return cartsvc.Product{
		ID:       payload.ID,
		Title:    payload.Title,
		ImageURL: payload.ImageURL,
		Price:    payload.Price,
	}
}
