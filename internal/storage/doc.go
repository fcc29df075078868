// Package storage provides the box catalog: an in-memory catalog seeded from
// configuration and a SQLite-backed catalog seeded once with the same ids.
// A box keeps its id for as long as it exists.
package storage
