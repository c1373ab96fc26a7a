package idgen

import "github.com/google/uuid"

// NewFunc generates identifiers. Tests replace it to get predictable ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new state, subscription or message identifier.
func New() string { return NewFunc() }

// WithPrefix returns New() prefixed with prefix and a dash, used for ids that
// are read by operators, for example "sub-<uuid>".
func WithPrefix(prefix string) string { return prefix + "-" + New() }
