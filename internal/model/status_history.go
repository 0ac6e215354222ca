package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusHistory is an append-only log entry, written only when a device's
// status actually changes. Rows are never updated or deleted.
type StatusHistory struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	DeviceID  string       `gorm:"size:36;not null;index:idx_status_history_device" json:"deviceId"`
	Status    DeviceStatus `gorm:"size:16;not null" json:"status"`
	CheckedAt time.Time    `gorm:"not null;index:idx_status_history_device" json:"checkedAt"`
}

func (h *StatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CheckedAt.IsZero() {
		h.CheckedAt = time.Now().UTC()
	}
	return nil
}
