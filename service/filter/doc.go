// Package filter decides whether an incoming interruption reaches an agent.
//
// Rules are evaluated in order: a disabled filter lets everything through,
// blacklisted sources are always denied, whitelisted sources are always
// allowed, deep focus denies the rest, and otherwise only interruptions whose
// intensity is below the threshold pass. List matching is exact and
// case-insensitive.
package filter
