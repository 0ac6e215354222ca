package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationSettings is a singleton; saving replaces any prior row.
type NotificationSettings struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Enabled bool   `gorm:"not null;default:true" json:"enabled"`
	Email   string `gorm:"size:256;not null" json:"email"`
	// Threshold is the offline-device count at which an alert fires.
	Threshold int `gorm:"not null;default:10" json:"threshold"`
	// CheckInterval is display-only; the scheduler interval comes from
	// the service configuration.
	CheckInterval int       `gorm:"not null;default:15" json:"checkInterval"`
	OfflineAlert  bool      `gorm:"not null;default:true" json:"offlineAlert"`
	OnlineAlert   bool      `gorm:"not null;default:false" json:"onlineAlert"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

func (n *NotificationSettings) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
