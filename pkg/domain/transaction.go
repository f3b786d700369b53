package domain

import (
	"sort"
	"strings"
	"time"
)

// OrderedBook is the book snapshot embedded in an order item.
type OrderedBook struct {
	ID     ID      `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Writer string  `json:"writer,omitempty"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ID        ID           `json:"id"`
	Quantity  int          `json:"quantity"`
	OrderID   ID           `json:"order_id"`
	BookID    ID           `json:"book_id"`
	Book      *OrderedBook `json:"book,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
}

// Subtotal returns price*quantity using the price captured at order time.
func (i OrderItem) Subtotal() float64 {
	if i.Book == nil {
		return 0
	}
	return i.Book.Price * float64(i.Quantity)
}

// Transaction is a placed order.
type Transaction struct {
	ID        ID          `json:"id"`
	UserID    ID          `json:"user_id"`
	User      *User       `json:"user,omitempty"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// Totals returns the number of books and the amount of the order.
func (t Transaction) Totals() (quantity int, amount float64) {
	for _, it := range t.Items {
		quantity += it.Quantity
		amount += it.Subtotal()
	}
	return quantity, amount
}

// OrderLine is one entry of an order submission.
type OrderLine struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the body of POST /transactions.
type OrderRequest struct {
	Items []OrderLine `json:"items"`
}

// Transaction sort keys used by the order history view.
const (
	OrderSortDateDesc   = "date_desc"
	OrderSortDateAsc    = "date_asc"
	OrderSortAmountDesc = "amount_desc"
	OrderSortAmountAsc  = "amount_asc"
)

// OrderSorts lists the order history sort keys in display order.
var OrderSorts = []string{OrderSortDateDesc, OrderSortDateAsc, OrderSortAmountDesc, OrderSortAmountAsc}

// FilterTransactions keeps orders whose id or any book title contains query,
// case-insensitively. An empty query keeps everything.
func FilterTransactions(txs []Transaction, query string) []Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return txs
	}
	var out []Transaction
	for _, t := range txs {
		if strings.Contains(strings.ToLower(t.ID.String()), q) {
			out = append(out, t)
			continue
		}
		for _, it := range t.Items {
			if it.Book != nil && strings.Contains(strings.ToLower(it.Book.Title), q) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// SortTransactions returns a sorted copy of txs. Unknown keys sort newest first.
func SortTransactions(txs []Transaction, key string) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	amount := func(t Transaction) float64 {
		_, a := t.Totals()
		return a
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch key {
		case OrderSortDateAsc:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case OrderSortAmountDesc:
			return amount(out[i]) > amount(out[j])
		case OrderSortAmountAsc:
			return amount(out[i]) < amount(out[j])
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out
}
