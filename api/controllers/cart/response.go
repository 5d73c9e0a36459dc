package cart

import (
	cartdto "github.com/angelmondragon/marketplace-cart/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
)

type loadReporter interface {
	Loaded() bool
}

func newCart(c cartsvc.Cart, snap cartsvc.Snapshot) cartdto.Cart {
	items := snap.Items()
	products := make([]cartdto.LineItem, 0, len(items))
	for _, item := range items {
		products = append(products, cartdto.LineItem{
			ID:       item.ID,
			Title:    item.Title,
			ImageURL: item.ImageURL,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	loaded := snap.Version() > 0
	if lr, ok := c.(loadReporter); ok {
		loaded = lr.Loaded()
	}

	return cartdto.Cart{
		Products:      products,
		Version:       snap.Version(),
		TotalQuantity: snap.TotalQuantity(),
		Loaded:        loaded,
	}
}
