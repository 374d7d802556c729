package service

import "errors"

var (
	// ErrNotFound is returned when a lookup by id or title yields nothing.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidID is returned for ids that are not valid object ids.
	ErrInvalidID = errors.New("invalid product id")
)
