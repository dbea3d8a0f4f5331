package cart

import "errors"

var (
	ErrCorruptCart       = errors.New("stored cart is not a list of items")
	ErrInvalidItem       = errors.New("invalid cart item")
	ErrInvalidIdentifier = errors.New("invalid item identifier")
)
