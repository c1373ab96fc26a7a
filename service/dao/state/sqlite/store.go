package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/attention/internal/idgen"
	"github.com/viant/attention/model"
	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/criteria"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS attention_states (
	id          TEXT PRIMARY KEY,
	agent_id    TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	ts          INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	overload    INTEGER NOT NULL DEFAULT 0,
	utilization REAL NOT NULL DEFAULT 0,
	task_type   TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL
)`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_attention_agent_ts ON attention_states(agent_id, ts)",
	"CREATE INDEX IF NOT EXISTS idx_attention_agent_session_ts ON attention_states(agent_id, session_id, ts)",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_attention_scope_version ON attention_states(agent_id, session_id, version)",
	"CREATE INDEX IF NOT EXISTS idx_attention_overload ON attention_states(overload, ts)",
}

// Store is a SQLite backed dao.StateStore.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn and ensures the schema.
// Use ":memory:" for an ephemeral store.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn cannot be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	ret := &Store{db: db}
	if err := ret.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ret, nil
}

func (s *Store) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Insert appends state within a transaction that checks the scope head.
func (s *Store) Insert(ctx context.Context, state *model.State) (string, error) {
	if state == nil {
		return "", dao.ErrNilEntity
	}
	if !model.ValidAgentID(state.AgentID) {
		return "", dao.ErrInvalidID
	}
	record := state.Clone()
	if record.ID == "" {
		record.ID = idgen.New()
	}
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var head int64
		row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM attention_states WHERE agent_id = ? AND session_id = ?", record.AgentID, record.SessionID)
		if err := row.Scan(&head); err != nil {
			return fmt.Errorf("read head: %w", err)
		}
		if record.Version != head+1 {
			return fmt.Errorf("insert %v version %d, head %d: %w", record.AgentID, record.Version, head, dao.ErrConflict)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO attention_states(id, agent_id, session_id, ts, version, overload, utilization, task_type, data)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`, columns(record, data)...)
		if err != nil {
			return fmt.Errorf("insert state: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	state.ID = record.ID
	return record.ID, nil
}

// FindLatest selects the newest record of the agent.
func (s *Store) FindLatest(ctx context.Context, agentID, sessionID string) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	return s.latest(ctx, s.db, agentID, sessionID)
}

// UpdateLatest rewrites the newest record, guarded by its version.
func (s *Store) UpdateLatest(ctx context.Context, agentID, sessionID string, fn func(state *model.State) error) (*model.State, error) {
	if !model.ValidAgentID(agentID) {
		return nil, dao.ErrInvalidID
	}
	var ret *model.State
	err := s.tx(ctx, func(tx *sql.Tx) error {
		current, err := s.latest(ctx, tx, agentID, sessionID)
		if err != nil {
			return err
		}
		updated := current.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		updated.ID = current.ID
		updated.AgentID = current.AgentID
		updated.SessionID = current.SessionID
		updated.Version = current.Version + 1
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}
		values := columns(updated, data)
		result, err := tx.ExecContext(ctx, `UPDATE attention_states
SET ts = ?, version = ?, overload = ?, utilization = ?, task_type = ?, data = ?
WHERE id = ? AND version = ?`, values[3], values[4], values[5], values[6], values[7], values[8], current.ID, current.Version)
		if err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		if affected, err := result.RowsAffected(); err != nil {
			return err
		} else if affected != 1 {
			return fmt.Errorf("update %v version %d: %w", agentID, current.Version, dao.ErrConflict)
		}
		ret = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// QueryRange translates the criteria predicates into SQL.
func (s *Store) QueryRange(ctx context.Context, query *criteria.Query) ([]*model.State, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	where, args := translate(query)
	SQL := "SELECT data FROM attention_states"
	if len(where) > 0 {
		SQL += " WHERE " + strings.Join(where, " AND ")
	}
	order := "ASC"
	if query != nil && query.Descending {
		order = "DESC"
	}
	SQL += " ORDER BY ts " + order
	if query != nil && query.Limit > 0 {
		SQL += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	rows, err := s.db.QueryContext(ctx, SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()
	var ret []*model.State
	for rows.Next() {
		state, err := scan(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, state)
	}
	return ret, rows.Err()
}

// CreateIndexes creates the lookup indexes.
func (s *Store) CreateIndexes(ctx context.Context) error {
	for _, index := range indexes {
		if _, err := s.db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("execute %s: %w", index, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) latest(ctx context.Context, q queryer, agentID, sessionID string) (*model.State, error) {
	SQL := "SELECT data FROM attention_states WHERE agent_id = ?"
	args := []interface{}{agentID}
	if sessionID != "" {
		SQL += " AND session_id = ?"
		args = append(args, sessionID)
	}
	SQL += " ORDER BY ts DESC LIMIT 1"
	state, err := scan(q.QueryRowContext(ctx, SQL, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	return state, err
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(row scanner) (*model.State, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	state := &model.State{}
	if err := json.Unmarshal([]byte(data), state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

func columns(state *model.State, data []byte) []interface{} {
	overload := 0
	if state.CognitiveLoad.Overload {
		overload = 1
	}
	return []interface{}{
		state.ID, state.AgentID, state.SessionID, state.Timestamp.UnixNano(), state.Version,
		overload, state.CognitiveLoad.Utilization, strings.ToLower(state.PrimaryTaskType()), string(data),
	}
}

func translate(query *criteria.Query) ([]string, []interface{}) {
	if query == nil {
		return nil, nil
	}
	var where []string
	var args []interface{}
	for _, p := range query.Predicates {
		switch p.Kind {
		case criteria.KindAgent:
			where, args = append(where, "agent_id = ?"), append(args, p.Text)
		case criteria.KindSession:
			where, args = append(where, "session_id = ?"), append(args, p.Text)
		case criteria.KindSince:
			where, args = append(where, "ts >= ?"), append(args, p.Time.UnixNano())
		case criteria.KindUntil:
			where, args = append(where, "ts <= ?"), append(args, p.Time.UnixNano())
		case criteria.KindOverload:
			flag := 0
			if p.Bool {
				flag = 1
			}
			where, args = append(where, "overload = ?"), append(args, flag)
		case criteria.KindTaskType:
			where, args = append(where, "task_type = ?"), append(args, strings.ToLower(p.Text))
		case criteria.KindMinUtilization:
			where, args = append(where, "utilization >= ?"), append(args, p.Float)
		}
	}
	return where, args
}

var _ dao.StateStore = (*Store)(nil)
