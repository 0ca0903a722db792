package model

import "time"

// EventKind identifies an authentication or session lifecycle occurrence.
type EventKind string

const (
	EventAuthSuccess        EventKind = "AUTH_SUCCESS"
	EventAuthFailed         EventKind = "AUTH_FAILED"
	EventAuthBlocked        EventKind = "AUTH_BLOCKED"
	EventSessionInvalidated EventKind = "SESSION_INVALIDATED"
	EventSessionIPMismatch  EventKind = "SESSION_IP_MISMATCH"
	EventAllSessionsCleared EventKind = "ALL_SESSIONS_CLEARED"
	EventEmergencyIssued    EventKind = "EMERGENCY_ACCESS_GENERATED"
	EventEmergencyRedeemed  EventKind = "EMERGENCY_ACCESS_REDEEMED"
)

// SecurityEvent is an immutable, append-only audit record. No component ever
// updates or deletes one; sinks own durability and retention.
type SecurityEvent struct {
	EventID   string            `json:"event_id"`
	Kind      EventKind         `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}
