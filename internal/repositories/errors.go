package repository

import "errors"

var (
	ErrProductNotFound = errors.New("product model not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrNotEnoughItems  = errors.New("not enough unclaimed items")
)
