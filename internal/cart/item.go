package cart

// LineItem is one product in the cart together with its quantity.
// Everything except Quantity is fixed once the item is added.
type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Product is the AddToCart input: a line item without quantity.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

func (p Product) lineItem() LineItem {
	return LineItem{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: 1,
	}
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// addItem appends p with quantity 1, or increments the existing line when
// the id is already present. The stored fields of an existing line win.
func addItem(items []LineItem, p Product) ([]LineItem, bool) {
	if indexOf(items, p.ID) >= 0 {
		return incrementItem(items, p.ID)
	}
	next := make([]LineItem, len(items), len(items)+1)
	copy(next, items)
	return append(next, p.lineItem()), true
}

func incrementItem(items []LineItem, id string) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	next := cloneItems(items)
	next[i].Quantity++
	return next, true
}

// decrementItem removes the line when its quantity would reach zero.
func decrementItem(items []LineItem, id string) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	if items[i].Quantity > 1 {
		next := cloneItems(items)
		next[i].Quantity--
		return next, true
	}
	next := make([]LineItem, 0, len(items)-1)
	next = append(next, items[:i]...)
	next = append(next, items[i+1:]...)
	return next, true
}

func cloneItems(items []LineItem) []LineItem {
	next := make([]LineItem, len(items))
	copy(next, items)
	return next
}
