package dao

import (
	"context"

	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao/criteria"
)

// StateStore is a durable, timestamp ordered record of attention states.
//
// A scope is the (agentID, sessionID) pair. Version increases by one with
// every write in a scope; Insert requires state.Version to be the scope head
// plus one and returns ErrConflict otherwise.
type StateStore interface {
	// Insert appends a new record and returns its id.
	Insert(ctx context.Context, state *model.State) (string, error)

	// FindLatest returns the most recent record of the agent, restricted to
	// sessionID when not empty. It returns ErrNotFound when none exists.
	FindLatest(ctx context.Context, agentID, sessionID string) (*model.State, error)

	// UpdateLatest applies fn to a copy of the latest record and stores it in
	// place with the next version. An fn error aborts the update.
	UpdateLatest(ctx context.Context, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error)

	// QueryRange returns records matching query ordered by timestamp.
	QueryRange(ctx context.Context, query *criteria.Query) ([]*model.State, error)

	// CreateIndexes prepares lookup structures. It has no semantic effect.
	CreateIndexes(ctx context.Context) error

	Close() error
}
