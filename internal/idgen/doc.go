// Package idgen generates the opaque identifiers of states, watchers and
// queue messages. Callers must not parse them.
package idgen
