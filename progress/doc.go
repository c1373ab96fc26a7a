// Package progress keeps in-process per-agent operation counters. Counters
// are not persisted; they describe what this process did since it started.
package progress
