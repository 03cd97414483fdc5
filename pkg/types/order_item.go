package types

// OrderItem is one line of an order as persisted on the order document.
// Price stays the free-form display string it was captured with; totals are
// computed at creation time and never recomputed from these rows.
type OrderItem struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Qty   int    `json:"qty"`
	Image string `json:"image,omitempty"`
}

// OrderItems is stored as a JSON document column.
type OrderItems []OrderItem
