// Package packing holds the geometry of a shipping estimate: items and boxes,
// dimension normalization, the canonical cache key of a cart, and the local
// fallback used when the external packing service cannot answer.
package packing
