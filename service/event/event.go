package event

import (
	"time"

	"github.com/viant/attention/internal/clock"
)

// Event types.
const (
	TypeInsert = "insert"
	TypeUpdate = "update"
)

// Context identifies the write an event reports
type Context struct {
	AgentID   string `json:"agentId"`
	SessionID string `json:"sessionId,omitempty"`
	StateID   string `json:"stateId"`
	Version   int64  `json:"version"`
	EventType string `json:"eventType"`
	Overload  bool   `json:"overload"`
}

// Event carries a payload with its context
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
