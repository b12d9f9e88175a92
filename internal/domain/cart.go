package domain

// CartItem es una línea del carrito con los datos del producto ya resueltos.
type CartItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// NewCart calcula subtotales y total a partir de las líneas.
func NewCart(items []CartItem) Cart {
	cart := Cart{Items: make([]CartItem, 0, len(items))}
	for _, item := range items {
		item.TotalPrice = RoundMoney(item.UnitPrice * float64(item.Quantity))
		cart.Total += item.TotalPrice
		cart.Items = append(cart.Items, item)
	}
	cart.Total = RoundMoney(cart.Total)
	return cart
}
