package domain

// Product is a line item in the cart: one distinct catalog product and how
// many of it the shopper holds.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// NewProduct is the input to an add: a catalog product without a quantity.
type NewProduct struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

// LineItem builds the cart entry for a first add.
func (p NewProduct) LineItem() Product {
	return Product{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: 1,
	}
}

// Cart is the ordered list of line items, keyed by product ID.
type Cart []Product

// FindIndex returns the index of the line item with the given product ID, or -1.
func (c Cart) FindIndex(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// ItemCount returns the sum of all quantities.
func (c Cart) ItemCount() int {
	var count int
	for _, p := range c {
		count += p.Quantity
	}
	return count
}

// Total returns the sum of price times quantity over all line items.
func (c Cart) Total() float64 {
	var total float64
	for _, p := range c {
		total += p.Price * float64(p.Quantity)
	}
	return total
}
