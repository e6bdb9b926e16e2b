package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Telegram rejects callback data longer than this many bytes.
const MaxCallbackData = 64

// Action names a decoded callback or command. They double as metric labels.
type Action string

const (
	ActionStart    Action = "start"
	ActionCancel   Action = "cancel"
	ActionCategory Action = "category"
	ActionAdd      Action = "add"
	ActionViewCart Action = "view_cart"
	ActionFilter   Action = "filter"
	ActionText     Action = "text"
	ActionUnknown  Action = "unknown"
)

const (
	prefixCategory = "category:"
	prefixAdd      = "add:"
	prefixFilter   = "filter:"
	dataViewCart   = "view_cart"
)

var ErrBadCallback = errors.New("bad callback data")

// Callback is decoded button data.
type Callback struct {
	Action    Action
	Category  string
	ProductID string
	Min       int64
	Max       int64
}

func CategoryData(category string) string {
	return prefixCategory + category
}

func AddData(category, productID string) string {
	return prefixAdd + category + ":" + productID
}

func FilterData(min, max int64) string {
	return fmt.Sprintf("%s%d:%d", prefixFilter, min, max)
}

func ViewCartData() string {
	return dataViewCart
}

// ParseCallback decodes button data. Category names may contain ':'; in
// add data the product key is whatever follows the last ':'.
func ParseCallback(data string) (Callback, error) {
	switch {
	case data == dataViewCart:
		return Callback{Action: ActionViewCart}, nil

	case strings.HasPrefix(data, prefixCategory):
		category := strings.TrimPrefix(data, prefixCategory)
		if category == "" {
			return Callback{}, fmt.Errorf("%w: empty category", ErrBadCallback)
		}
		return Callback{Action: ActionCategory, Category: category}, nil

	case strings.HasPrefix(data, prefixAdd):
		rest := strings.TrimPrefix(data, prefixAdd)
		i := strings.LastIndex(rest, ":")
		if i <= 0 || i == len(rest)-1 {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return Callback{Action: ActionAdd, Category: rest[:i], ProductID: rest[i+1:]}, nil

	case strings.HasPrefix(data, prefixFilter):
		parts := strings.Split(strings.TrimPrefix(data, prefixFilter), ":")
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		min, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		max, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || max < min {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return Callback{Action: ActionFilter, Min: min, Max: max}, nil
	}

	return Callback{Action: ActionUnknown}, fmt.Errorf("%w: %q", ErrBadCallback, data)
}
