package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceStatus is the reconciled online state of a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	// StatusUnknown is the initial state before the first successful check.
	StatusUnknown DeviceStatus = "unknown"
)

// Device is a monitored camera tracked by its vendor-assigned identifier.
// ExternalID is unique and serves as the upsert key during reconciliation.
type Device struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	ExternalID string       `gorm:"uniqueIndex;size:128;not null" json:"externalDeviceId"`
	Name       string       `gorm:"size:256;not null" json:"name"`
	Serial     string       `gorm:"size:128;not null" json:"serial"`
	Type       string       `gorm:"size:128" json:"type,omitempty"`
	Version    string       `gorm:"size:64" json:"version,omitempty"`
	IPAddress  string       `gorm:"size:64" json:"ipAddress,omitempty"`
	Status     DeviceStatus `gorm:"size:16;not null;default:unknown" json:"status"`
	LastSeen   *time.Time   `json:"lastSeen,omitempty"`
	// BranchID may dangle after a branch deletion; devices are never
	// implicitly deleted or reassigned when their branch goes away.
	BranchID  *string   `gorm:"size:36;index" json:"branchId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	return nil
}
