package models

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is one row of a category sheet.
type Product struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	PriceText   string          `json:"price_text"`
	Price       decimal.Decimal `json:"price"`
	HasPrice    bool            `json:"has_price"`
	Photo       string          `json:"photo"`
}

// ProductKey derives a stable key from the product name for sheets without an ID column.
func ProductKey(name string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.TrimSpace(name)))
	return fmt.Sprintf("%08x", h.Sum32())
}

// ParsePrice reads a display price such as "150 грн" or "99,50 грн".
func ParsePrice(text, currency string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if currency != "" {
		s = strings.ReplaceAll(s, currency, "")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, errors.New("empty price")
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", text, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", text)
	}
	return price, nil
}

// FormatPrice renders an amount the way the catalog writes prices.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.String()
	}
	return amount.String() + " " + currency
}

// InRange reports whether the product price lies within [min, max].
func (p *Product) InRange(min, max decimal.Decimal) bool {
	if !p.HasPrice {
		return false
	}
	return p.Price.GreaterThanOrEqual(min) && p.Price.LessThanOrEqual(max)
}
