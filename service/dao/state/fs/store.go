package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
)

// Store implements a filesystem-based dao.StateStore. Each agent owns a
// directory; each record is a JSON file named after its timestamp so that
// lexical order is time order.
type Store struct {
	basePath string
	fs       afs.Service
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// Option configures the store.
type Option func(s *Store)

// WithFs sets the afs service, defaults to afs.New().
func WithFs(fs afs.Service) Option {
	return func(s *Store) { s.fs = fs }
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a filesystem store rooted at basePath.
func New(basePath string, opts ...Option) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	ret := &Store{fs: afs.New(), logger: log.Logger}
	for _, opt := range opts {
		opt(ret)
	}
	ctx := context.Background()
	basePath = url.Normalize(basePath, file.Scheme)
	if exists, _ := ret.fs.Exists(ctx, basePath); !exists {
		if err := ret.fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	ret.basePath = basePath
	return ret, nil
}

// Insert writes state as a new record file.
func (s *Store) Insert(ctx context.Context, state *model.State) (string, error) {
	if state == nil {
		return "", dao.ErrNilEntity
	}
	if !model.ValidAgentID(state.AgentID) {
		return "", dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx, state.AgentID)
	if err != nil {
		return "", err
	}
	if head := head(records, state.SessionID); state.Version != head+1 {
		return "", fmt.Errorf("insert %v version %d, head %d: %w", state.AgentID, state.Version, head, dao.ErrConflict)
	}
	record := state.Clone()
	if record.ID == "" {
		record.ID = idgen.New()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.write(ctx, record); err != nil {
		return "", err
	}
	state.ID = record.ID
	return record.ID, nil
}

// FindLatest reads the latest record of the agent.
func (s *Store) FindLatest(ctx context.Context, agentID, sessionID string) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, err := s.load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if record := latest(records, sessionID); record != nil {
		return record.state, nil
	}
	return nil, dao.ErrNotFound
}

// UpdateLatest rewrites the latest record of the agent.
func (s *Store) UpdateLatest(ctx context.Context, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	current := latest(records, sessionID)
	if current == nil {
		return nil, dao.ErrNotFound
	}
	updated := current.state.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	updated.ID = current.state.ID
	updated.AgentID = current.state.AgentID
	updated.SessionID = current.state.SessionID
	updated.Version = current.state.Version + 1
	if err := s.write(ctx, updated); err != nil {
		return nil, err
	}
	if target := s.recordURL(updated); target != current.URL {
		if err := s.fs.Delete(ctx, current.URL); err != nil {
			return nil, fmt.Errorf("failed to delete replaced record %s: %w", current.URL, err)
		}
	}
	return updated.Clone(), nil
}

// QueryRange scans agent directories for matching records.
func (s *Store) QueryRange(ctx context.Context, query *criteria.Query) ([]*model.State, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var agents []string
	if agentID := query.AgentID(); agentID != "" {
		agents = append(agents, agentID)
	} else {
		objects, err := s.fs.List(ctx, s.basePath)
		if err != nil {
			return nil, fmt.Errorf("failed to list agents: %w", err)
		}
		baseName := path.Base(strings.TrimRight(s.basePath, "/"))
		for i, object := range objects {
			if i == 0 && object.Name() == baseName {
				continue
			}
			if object.IsDir() {
				agents = append(agents, object.Name())
			}
		}
	}
	var ret []*model.State
	for _, agentID := range agents {
		records, err := s.load(ctx, agentID)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if query.Match(record.state) {
				ret = append(ret, record.state)
			}
		}
	}
	return query.Apply(ret), nil
}

// CreateIndexes is a no-op, file names already carry the time order.
func (s *Store) CreateIndexes(context.Context) error {
	return nil
}

// Close releases nothing.
func (s *Store) Close() error {
	return nil
}

type record struct {
	URL   string
	state *model.State
}

func (s *Store) load(ctx context.Context, agentID string) ([]*record, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := url.Join(s.basePath, agentID)
	exists, err := s.fs.Exists(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check agent directory %s: %w", dir, err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", agentID, err)
	}
	var ret []*record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", object.URL()).Msg("skipping unreadable state record")
			continue
		}
		state := &model.State{}
		if err := json.Unmarshal(data, state); err != nil {
			s.logger.Warn().Err(err).Str("url", object.URL()).Msg("skipping malformed state record")
			continue
		}
		ret = append(ret, &record{URL: object.URL(), state: state})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].state.Timestamp.Before(ret[j].state.Timestamp)
	})
	return ret, nil
}

func (s *Store) write(ctx context.Context, state *model.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	target := s.recordURL(state)
	if err := s.fs.Upload(ctx, target, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save state to file %s: %w", target, err)
	}
	return nil
}

func (s *Store) recordURL(state *model.State) string {
	return url.Join(s.basePath, state.AgentID, fmt.Sprintf("%020d_%s.json", state.Timestamp.UnixNano(), state.ID))
}

func latest(records []*record, sessionID string) *record {
	for i := len(records) - 1; i >= 0; i-- {
		if sessionID == "" || records[i].state.SessionID == sessionID {
			return records[i]
		}
	}
	return nil
}

func head(records []*record, sessionID string) int64 {
	var ret int64
	for _, record := range records {
		if record.state.SessionID == sessionID && record.state.Version > ret {
			ret = record.state.Version
		}
	}
	return ret
}

var _ dao.StateStore = (*Store)(nil)
