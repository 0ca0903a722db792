package model

import "time"

// EmergencyAccessGrant is a break-glass code with a short validity window.
// The issuer is stateless; single-use enforcement belongs to the redeeming
// side (see auth.EmergencyRedeemer).
type EmergencyAccessGrant struct {
	Code       string    `json:"emergency_code"`
	ValidUntil time.Time `json:"valid_until"`
}

// TOTPSetupData is consumed by standard authenticator apps during enrollment.
type TOTPSetupData struct {
	Secret         string `json:"secret"`
	SetupURI       string `json:"setup_uri"`
	ManualEntryKey string `json:"manual_entry_key"`
}
