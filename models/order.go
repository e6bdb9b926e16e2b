package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderTimeLayout is the timestamp format written to the orders sheet.
const OrderTimeLayout = "2006-01-02 15:04:05"

type Order struct {
	ID           string          `json:"order_id"`
	UserID       int64           `json:"user_id"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	Branch       string          `json:"branch"`
	Items        []CartItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderDetails is the parsed "name; phone; branch" line.
type OrderDetails struct {
	Name   string
	Phone  string
	Branch string
}

// ParseOrderDetails splits the customer line on ';'. Fields after the third are ignored.
func ParseOrderDetails(text string) (OrderDetails, error) {
	parts := strings.Split(strings.TrimSpace(text), ";")
	if len(parts) < 3 {
		return OrderDetails{}, ErrMalformedOrderInput
	}
	d := OrderDetails{
		Name:   strings.TrimSpace(parts[0]),
		Phone:  strings.TrimSpace(parts[1]),
		Branch: strings.TrimSpace(parts[2]),
	}
	if d.Name == "" || d.Phone == "" || d.Branch == "" {
		return OrderDetails{}, ErrMalformedOrderInput
	}
	return d, nil
}

// Row renders the order as the orders sheet expects it.
func (o *Order) Row(currency string) []interface{} {
	lines := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, item.Display(currency))
	}
	return []interface{}{
		o.CustomerName,
		o.Phone,
		o.Branch,
		strings.Join(lines, "; "),
		FormatPrice(o.Total, currency),
		o.CreatedAt.Format(OrderTimeLayout),
	}
}

// ItemCount sums quantities across lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
