package orders

import "errors"

var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotOwner          = errors.New("order belongs to another user")
)
