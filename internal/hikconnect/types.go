package hikconnect

import (
	"fmt"
	"time"
)

// Session is the vendor-issued, time-limited credential obtained from a
// ticket login.
type Session struct {
	Token       string
	FeatureCode string
	CustomerNo  string
	Expiry      time.Time
}

// VendorDevice is the canonical shape of a device record returned by the
// portal, after field-name fallback resolution.
type VendorDevice struct {
	ExternalID string
	Name       string
	Serial     string
	Type       string
	Version    string
	IPAddress  string
	Online     bool
}

// AuthError reports a rejected or malformed vendor login.
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("hik-connect authentication failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("hik-connect authentication failed: %s", e.Reason)
}
