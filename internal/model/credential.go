package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthMode selects which authentication scheme the vendor gateway uses
// for a stored credential set.
type AuthMode string

const (
	// AuthModeAPIKey signs each request with a static key/secret pair.
	AuthModeAPIKey AuthMode = "api_key"
	// AuthModeSessionTicket logs in with account/password and carries a
	// time-limited session ticket on subsequent requests.
	AuthModeSessionTicket AuthMode = "session_ticket"
)

// Credential holds the single active set of vendor portal credentials.
// At most one row exists at a time; saving replaces any prior row.
type Credential struct {
	ID       string   `gorm:"primaryKey;size:36" json:"id"`
	Username string   `gorm:"size:256;not null" json:"username"`
	Password string   `gorm:"size:256;not null" json:"-"`
	AuthMode AuthMode `gorm:"size:32;not null;default:session_ticket" json:"authMode"`

	// Static signing pair, only meaningful in AuthModeAPIKey.
	APIKey    string `gorm:"size:256" json:"apiKey,omitempty"`
	APISecret string `gorm:"size:256" json:"-"`

	// Session fields, only meaningful in AuthModeSessionTicket. Refreshed
	// in place after each successful vendor login.
	SessionID     string     `gorm:"size:512" json:"sessionId,omitempty"`
	FeatureCode   string     `gorm:"size:128" json:"featureCode,omitempty"`
	CustomerNo    string     `gorm:"size:128" json:"customerNo,omitempty"`
	SessionExpiry *time.Time `json:"sessionExpiry,omitempty"`

	LastSync  *time.Time `json:"lastSync,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeSessionTicket
	}
	return nil
}
