package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CartItem is one line of the cart. ID identifies the catalog entry the
// storefront sent; lines are keyed by (ID, Size) so that two sizes of the
// same product coexist.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type State struct {
	Items  []CartItem `json:"items"`
	IsOpen bool       `json:"isOpen"`
}

func InitialState() State {
	return State{Items: []CartItem{}}
}

func (s State) clone() State {
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, IsOpen: s.IsOpen}
}

func (s State) indexOf(id, size string) int {
	for i, item := range s.Items {
		if item.ID == id && item.Size == size {
			return i
		}
	}
	return -1
}

// Count is the total number of units in the cart.
func (s State) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line keyed by (id, size).
func (s State) Find(id, size string) (CartItem, bool) {
	i := s.indexOf(id, size)
	if i < 0 {
		return CartItem{}, false
	}
	return s.Items[i], true
}

// Fingerprint identifies what the cart would charge for. The drawer flag
// does not count.
func (s State) Fingerprint() string {
	var b strings.Builder
	for _, item := range s.Items {
		fmt.Fprintf(&b, "%s|%s|%s|%d|%s;", item.ID, item.Size, item.Color, item.Quantity, item.Price.String())
	}
	return b.String()
}
