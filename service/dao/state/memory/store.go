package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
)

// Store is an in-memory dao.StateStore. Records are kept per agent in
// timestamp order and copied on the way in and out.
type Store struct {
	mu      sync.RWMutex
	records map[string][]*model.State
	heads   map[scope]int64
}

type scope struct {
	agentID   string
	sessionID string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string][]*model.State),
		heads:   make(map[scope]int64),
	}
}

// Insert appends a copy of state.
func (s *Store) Insert(ctx context.Context, state *model.State) (string, error) {
	if state == nil {
		return "", dao.ErrNilEntity
	}
	if !model.ValidAgentID(state.AgentID) {
		return "", dao.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scope{state.AgentID, state.SessionID}
	if head := s.heads[key]; state.Version != head+1 {
		return "", fmt.Errorf("insert %v version %d, head %d: %w", state.AgentID, state.Version, head, dao.ErrConflict)
	}
	record := state.Clone()
	if record.ID == "" {
		record.ID = idgen.New()
	}
	s.heads[key] = record.Version
	s.records[record.AgentID] = insertSorted(s.records[record.AgentID], record)
	state.ID = record.ID
	return record.ID, nil
}

// FindLatest returns a copy of the latest record.
func (s *Store) FindLatest(ctx context.Context, agentID, sessionID string) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, record := s.latest(agentID, sessionID)
	if record == nil {
		return nil, dao.ErrNotFound
	}
	return record.Clone(), nil
}

// UpdateLatest applies fn to a copy of the latest record and replaces it.
func (s *Store) UpdateLatest(ctx context.Context, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, record := s.latest(agentID, sessionID)
	if record == nil {
		return nil, dao.ErrNotFound
	}
	updated := record.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	updated.ID = record.ID
	updated.AgentID = record.AgentID
	updated.SessionID = record.SessionID
	updated.Version = record.Version + 1
	key := scope{record.AgentID, record.SessionID}
	if s.heads[key] != record.Version {
		return nil, fmt.Errorf("update %v version %d, head %d: %w", agentID, record.Version, s.heads[key], dao.ErrConflict)
	}
	s.heads[key] = updated.Version
	agentRecords := s.records[agentID]
	agentRecords = append(agentRecords[:index:index], agentRecords[index+1:]...)
	s.records[agentID] = insertSorted(agentRecords, updated)
	return updated.Clone(), nil
}

// QueryRange returns copies of matching records.
func (s *Store) QueryRange(ctx context.Context, query *criteria.Query) ([]*model.State, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates [][]*model.State
	if agentID := query.AgentID(); agentID != "" {
		candidates = append(candidates, s.records[agentID])
	} else {
		for _, records := range s.records {
			candidates = append(candidates, records)
		}
	}
	var ret []*model.State
	for _, records := range candidates {
		for _, record := range records {
			if query.Match(record) {
				ret = append(ret, record.Clone())
			}
		}
	}
	return query.Apply(ret), nil
}

// CreateIndexes is a no-op, records are already grouped by agent.
func (s *Store) CreateIndexes(context.Context) error {
	return nil
}

// Close releases nothing.
func (s *Store) Close() error {
	return nil
}

func (s *Store) latest(agentID, sessionID string) (int, *model.State) {
	records := s.records[agentID]
	for i := len(records) - 1; i >= 0; i-- {
		if sessionID == "" || records[i].SessionID == sessionID {
			return i, records[i]
		}
	}
	return -1, nil
}

func insertSorted(records []*model.State, record *model.State) []*model.State {
	index := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp.After(record.Timestamp)
	})
	records = append(records, nil)
	copy(records[index+1:], records[index:])
	records[index] = record
	return records
}

var _ dao.StateStore = (*Store)(nil)
