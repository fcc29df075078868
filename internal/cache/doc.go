// Package cache stores packing decisions by canonical cart key, in process
// memory or in Redis.
package cache
