package cartdto

// AddProductRequest is the body of POST /api/v1/cart/products.
type AddProductRequest struct {
	ID       string  `json:"id" validate:"required,max=128"`
	Title    string  `json:"title" validate:"required,max=512"`
	ImageURL string  `json:"image_url" validate:"omitempty,url"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart is the public view of a cart snapshot.
type Cart struct {
	Products      []LineItem `json:"products"`
	Version       uint64     `json:"version"`
	TotalQuantity int        `json:"total_quantity"`
	Loaded        bool       `json:"loaded"`
	// Persisted is set only when the client asked to wait for the write.
	Persisted *bool `json:"persisted,omitempty"`
}
