// Package mailbox serializes work per key. Every key owns a single worker
// goroutine fed by a bounded channel, so jobs for one agent run strictly in
// submission order while different agents proceed in parallel. Idle workers
// exit and are recreated on demand.
package mailbox
