package types

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed request or configuration. Nothing is
// written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %v: %v", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string, args ...interface{}) error {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &ValidationError{Field: field, Reason: reason}
}

// AllocationError reports a primary focus requirement that cannot fit the
// attention budget even with no secondary allocation.
type AllocationError struct {
	Required  float64
	Available float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation failed: required primary focus %.3f exceeds budget %.3f", e.Required, e.Available)
}

// Unwrap lets errors.As match AllocationError as a ValidationError.
func (e *AllocationError) Unwrap() error {
	return &ValidationError{Field: "primary.requiredFocus", Reason: "exceeds attention budget"}
}

// NewAllocationError creates an AllocationError.
func NewAllocationError(required, available float64) error {
	return &AllocationError{Required: required, Available: available}
}

// AgentStateNotFoundError is returned when an update targets an agent without
// a current state.
type AgentStateNotFoundError struct {
	AgentID   string
	SessionID string
}

func (e *AgentStateNotFoundError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("attention state not found for agent %v (session %v)", e.AgentID, e.SessionID)
	}
	return fmt.Sprintf("attention state not found for agent %v", e.AgentID)
}

// NewAgentStateNotFoundError creates an AgentStateNotFoundError.
func NewAgentStateNotFoundError(agentID, sessionID string) error {
	return &AgentStateNotFoundError{AgentID: agentID, SessionID: sessionID}
}

// StoreUnavailableError wraps a state store failure. Callers may retry with backoff.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("state store unavailable during %v: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// NewStoreUnavailableError creates a StoreUnavailableError.
func NewStoreUnavailableError(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

// StoreTimeoutError reports a store or feed call that exceeded its deadline.
type StoreTimeoutError struct {
	Op  string
	Err error
}

func (e *StoreTimeoutError) Error() string {
	return fmt.Sprintf("state store timeout during %v: %v", e.Op, e.Err)
}

func (e *StoreTimeoutError) Unwrap() error { return e.Err }

// NewStoreTimeoutError creates a StoreTimeoutError.
func NewStoreTimeoutError(op string, err error) error {
	return &StoreTimeoutError{Op: op, Err: err}
}

// NotificationDeliveryError reports a dropped notification. It is logged,
// never returned to the writer.
type NotificationDeliveryError struct {
	SubscriptionID string
	Err            error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery failed for subscription %v: %v", e.SubscriptionID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error { return e.Err }

// NewNotificationDeliveryError creates a NotificationDeliveryError.
func NewNotificationDeliveryError(subscriptionID string, err error) error {
	return &NotificationDeliveryError{SubscriptionID: subscriptionID, Err: err}
}

// IsValidation returns true for ValidationError and AllocationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAllocation returns true for AllocationError.
func IsAllocation(err error) bool {
	var target *AllocationError
	return errors.As(err, &target)
}

// IsAgentStateNotFound returns true for AgentStateNotFoundError.
func IsAgentStateNotFound(err error) bool {
	var target *AgentStateNotFoundError
	return errors.As(err, &target)
}

// IsStoreUnavailable returns true for StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// IsStoreTimeout returns true for StoreTimeoutError.
func IsStoreTimeout(err error) bool {
	var target *StoreTimeoutError
	return errors.As(err, &target)
}
