// Package analytics summarizes the recorded attention history of an agent
// over a time window and reports the latest state of every agent.
package analytics
