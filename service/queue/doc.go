// Package queue maintains the four priority tiers of pending work per agent.
// Tiers are mutually exclusive: a task id sits in at most one of them, and
// moving a task between tiers is an explicit remove followed by an add.
package queue
