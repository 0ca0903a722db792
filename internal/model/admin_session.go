package model

import "time"

// AdminSession is one authenticated administrative context. It exists only
// after a successful two-factor authentication and is never persisted to a
// durable store: losing sessions on restart is a security property here.
type AdminSession struct {
	SessionID       string      `json:"session_id"`
	AccessLevel     AccessLevel `json:"access_level"`
	OriginAddress   string      `json:"origin_address"`
	ClientSignature string      `json:"client_signature"`
	CreatedAt       time.Time   `json:"created_at"`
	ExpiresAt       time.Time   `json:"expires_at"`
	LastActivityAt  time.Time   `json:"last_activity_at"`
	IsActive        bool        `json:"is_active"`
}

// Expired reports whether the fixed expiry has passed. The TTL is set at
// creation and never extended, even under sustained activity.
func (s *AdminSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
