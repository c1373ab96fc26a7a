// Package allocator owns the attention budget. Allocator is the pure focus
// split; Service runs the allocation and load update pipelines against the
// state store, one agent at a time.
package allocator
