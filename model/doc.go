// Package model contains the in-memory representation of agent attention
// state, allocation requests and the supporting types shared by the attention
// services.
//
// A State record is appended for every allocation and load update; queue,
// filter and distraction operations update the latest record in place with a
// fresh timestamp. The most recently timestamped record of an agent (optionally
// scoped by session) is its current state.
package model
