// Package notifier turns change feed events into per-subscriber channels.
//
// A subscription is scoped to one agent and owns two bounded channels: every
// matching record goes to Changes, overloaded records also go to Overloads.
// A subscriber that does not keep up loses events after DeliveryTimeout.
package notifier
