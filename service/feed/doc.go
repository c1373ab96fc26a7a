// Package feed republishes state store writes as change events and lets
// watchers receive the ones matching a criteria.Query.
//
// Delivery is best-effort: each watcher owns a bounded buffer and events that
// do not fit are dropped. Filtering on agent id and overload flag happens in
// the feed, before an event reaches a watcher.
package feed
