package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string          `json:"product_id"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// PriceText is the price as the sheet shows it; UnitPrice is only for sums.
	PriceText string `json:"price_text,omitempty"`
	Quantity  int    `json:"quantity"`
}

// NewCartItem snapshots a product into a single-quantity cart line.
func NewCartItem(p *Product) CartItem {
	return CartItem{
		ProductID: p.ID,
		Category:  p.Category,
		Name:      p.Name,
		UnitPrice: p.Price,
		PriceText: strings.TrimSpace(p.PriceText),
		Quantity:  1,
	}
}

// Subtotal is UnitPrice × Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Display renders the line as "name (1 200 грн)", with "×N" for quantities
// above one. The sheet's own price text wins over the parsed amount.
func (i CartItem) Display(currency string) string {
	price := i.PriceText
	if price == "" {
		price = FormatPrice(i.UnitPrice, currency)
	}
	s := i.Name + " (" + price + ")"
	if i.Quantity > 1 {
		s += " ×" + decimal.NewFromInt(int64(i.Quantity)).String()
	}
	return s
}

type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Lines renders every item in insertion order.
func (c Cart) Lines(currency string) []string {
	lines := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, item.Display(currency))
	}
	return lines
}

// ConversationState is where a user is in the checkout flow.
type ConversationState string

const (
	StateBrowsing             ConversationState = "browsing"
	StateAwaitingOrderDetails ConversationState = "awaiting_order_details"
)

// Session is the per-user unit persisted by the session stores.
type Session struct {
	UserID    int64             `json:"user_id"`
	State     ConversationState `json:"state"`
	Cart      Cart              `json:"cart"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession returns an empty browsing session.
func NewSession(userID int64) *Session {
	return &Session{
		UserID: userID,
		State:  StateBrowsing,
		Cart:   Cart{Items: []CartItem{}},
	}
}

// Clone copies the session so callers never share the cart slice.
func (s *Session) Clone() *Session {
	c := *s
	c.Cart.Items = append([]CartItem{}, s.Cart.Items...)
	return &c
}
