// Package packer is the client of the external bin-packing service. Calls are
// bounded by a timeout and optionally throttled; failures carry a code so the
// caller can fall back without inspecting transport details.
package packer
