package models

import "errors"

var (
	// ErrStoreUnavailable means the spreadsheet could not be reached or authenticated.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCategoryNotFound means no sheet with the requested name exists.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound means the category no longer holds a product with the given key.
	ErrProductNotFound = errors.New("product not found")
	// ErrMalformedOrderInput means the order line did not carry name, phone and branch.
	ErrMalformedOrderInput = errors.New("malformed order input")
	ErrEmptyCart           = errors.New("cart is empty")
)
