package packing

import "errors"

var (
	// ErrNoItems is returned when a request carries an empty product list.
	ErrNoItems = errors.New("input contains no items")
	// ErrCatalogUnavailable is returned when the box catalog cannot be read.
	ErrCatalogUnavailable = errors.New("backend configuration not available")
)
