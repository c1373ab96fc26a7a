// Package criteria defines a typed query over attention state records.
// Each predicate is a tagged value so that store adapters can translate and
// index it without reflection.
package criteria

import (
	"fmt"
	"strings"
	"time"

	"github.com/viant/attention/model"
)

// Kind identifies a predicate.
type Kind int

const (
	KindAgent Kind = iota + 1
	KindSession
	KindSince
	KindUntil
	KindOverload
	KindTaskType
	KindMinUtilization
)

func (k Kind) String() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindSession:
		return "session"
	case KindSince:
		return "since"
	case KindUntil:
		return "until"
	case KindOverload:
		return "overload"
	case KindTaskType:
		return "taskType"
	case KindMinUtilization:
		return "minUtilization"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Predicate is a single condition. Only the field matching Kind is used.
type Predicate struct {
	Kind   Kind
	Text   string
	Time   time.Time
	Bool   bool
	Float  float64
}

// Query is a conjunction of predicates with ordering and limit.
type Query struct {
	Predicates []Predicate
	Limit      int
	Descending bool
}

// New creates an empty query matching every record.
func New() *Query {
	return &Query{}
}

func (q *Query) with(p Predicate) *Query {
	q.Predicates = append(q.Predicates, p)
	return q
}

// Agent restricts records to agentID.
func (q *Query) Agent(agentID string) *Query {
	return q.with(Predicate{Kind: KindAgent, Text: agentID})
}

// Session restricts records to sessionID.
func (q *Query) Session(sessionID string) *Query {
	return q.with(Predicate{Kind: KindSession, Text: sessionID})
}

// Since keeps records with timestamp at or after t.
func (q *Query) Since(t time.Time) *Query {
	return q.with(Predicate{Kind: KindSince, Time: t})
}

// Until keeps records with timestamp at or before t.
func (q *Query) Until(t time.Time) *Query {
	return q.with(Predicate{Kind: KindUntil, Time: t})
}

// Between is Since(from).Until(to).
func (q *Query) Between(from, to time.Time) *Query {
	return q.Since(from).Until(to)
}

// Overload keeps records whose overload flag equals flag.
func (q *Query) Overload(flag bool) *Query {
	return q.with(Predicate{Kind: KindOverload, Bool: flag})
}

// TaskType keeps records whose primary task type equals taskType.
func (q *Query) TaskType(taskType string) *Query {
	return q.with(Predicate{Kind: KindTaskType, Text: taskType})
}

// MinUtilization keeps records with utilization at or above v.
func (q *Query) MinUtilization(v float64) *Query {
	return q.with(Predicate{Kind: KindMinUtilization, Float: v})
}

// WithLimit caps the result size; zero means no limit.
func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit
	return q
}

// Desc orders newest first.
func (q *Query) Desc() *Query {
	q.Descending = true
	return q
}

// Validate checks predicate values.
func (q *Query) Validate() error {
	if q == nil {
		return nil
	}
	if q.Limit < 0 {
		return fmt.Errorf("criteria: negative limit %d", q.Limit)
	}
	for _, p := range q.Predicates {
		switch p.Kind {
		case KindAgent:
			if !model.ValidAgentID(p.Text) {
				return fmt.Errorf("criteria: invalid agent id %q", p.Text)
			}
		case KindSession, KindTaskType, KindOverload, KindSince, KindUntil:
		case KindMinUtilization:
			if p.Float < 0 || p.Float > 1 {
				return fmt.Errorf("criteria: minUtilization %v outside [0,1]", p.Float)
			}
		default:
			return fmt.Errorf("criteria: unsupported predicate %v", p.Kind)
		}
	}
	from, to := q.Window()
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("criteria: window end %v before start %v", to, from)
	}
	return nil
}

// AgentID returns the agent predicate value, if any.
func (q *Query) AgentID() string {
	return q.value(KindAgent)
}

// SessionID returns the session predicate value, if any.
func (q *Query) SessionID() string {
	return q.value(KindSession)
}

func (q *Query) value(kind Kind) string {
	if q == nil {
		return ""
	}
	for _, p := range q.Predicates {
		if p.Kind == kind {
			return p.Text
		}
	}
	return ""
}

// Window returns the tightest time bounds; zero values mean unbounded.
func (q *Query) Window() (from, to time.Time) {
	if q == nil {
		return
	}
	for _, p := range q.Predicates {
		switch p.Kind {
		case KindSince:
			if from.IsZero() || p.Time.After(from) {
				from = p.Time
			}
		case KindUntil:
			if to.IsZero() || p.Time.Before(to) {
				to = p.Time
			}
		}
	}
	return from, to
}

// Match reports whether state satisfies every predicate.
func (q *Query) Match(state *model.State) bool {
	if state == nil {
		return false
	}
	if q == nil {
		return true
	}
	for _, p := range q.Predicates {
		if !p.Match(state) {
			return false
		}
	}
	return true
}

// Match reports whether state satisfies the predicate.
func (p Predicate) Match(state *model.State) bool {
	switch p.Kind {
	case KindAgent:
		return state.AgentID == p.Text
	case KindSession:
		return state.SessionID == p.Text
	case KindSince:
		return !state.Timestamp.Before(p.Time)
	case KindUntil:
		return !state.Timestamp.After(p.Time)
	case KindOverload:
		return state.CognitiveLoad.Overload == p.Bool
	case KindTaskType:
		return strings.EqualFold(state.PrimaryTaskType(), p.Text)
	case KindMinUtilization:
		return state.CognitiveLoad.Utilization >= p.Float
	}
	return false
}

// Apply orders and limits records already filtered by Match.
func (q *Query) Apply(states []*model.State) []*model.State {
	sortStates(states, q != nil && q.Descending)
	if q != nil && q.Limit > 0 && len(states) > q.Limit {
		states = states[:q.Limit]
	}
	return states
}
