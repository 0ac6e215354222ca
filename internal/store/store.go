package store

import (
	"context"
	"errors"
	"time"

	"device-monitor-backend/internal/model"
)

// ErrNotFound is returned by keyed operations when no matching record exists.
var ErrNotFound = errors.New("record not found")

// SessionUpdate patches the vendor session fields on the stored credential.
type SessionUpdate struct {
	SessionID   string
	FeatureCode string
	CustomerNo  string
	Expiry      *time.Time
}

// BranchPatch holds the updatable branch fields; nil fields are left unchanged.
type BranchPatch struct {
	Name  *string
	Email *string
	State *string
}

// DevicePatch holds the updatable device fields; nil fields are left
// unchanged. An empty BranchID unassigns the device from its branch.
type DevicePatch struct {
	Name      *string
	Serial    *string
	Type      *string
	Version   *string
	IPAddress *string
	Status    *model.DeviceStatus
	LastSeen  *time.Time
	BranchID  *string
}

// DefaultHistoryLimit bounds history queries when the caller gives no limit.
const DefaultHistoryLimit = 50

// Store is the persistence contract shared by the in-memory and the
// relational backends. Both must behave identically: singletons are
// replaced on save, updates on missing ids report ErrNotFound, history is
// append-only.
type Store interface {
	// Credentials (at most one row).
	GetCredentials(ctx context.Context) (*model.Credential, error)
	SaveCredentials(ctx context.Context, cred *model.Credential) error
	UpdateSession(ctx context.Context, id string, sess SessionUpdate) error
	UpdateLastSync(ctx context.Context, id string, at time.Time) error

	// Branches.
	ListBranches(ctx context.Context) ([]model.Branch, error)
	GetBranch(ctx context.Context, id string) (*model.Branch, error)
	CreateBranch(ctx context.Context, branch *model.Branch) error
	UpdateBranch(ctx context.Context, id string, patch BranchPatch) (*model.Branch, error)
	DeleteBranch(ctx context.Context, id string) error

	// Devices.
	ListDevices(ctx context.Context) ([]model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	GetDeviceByExternalID(ctx context.Context, externalID string) (*model.Device, error)
	CreateDevice(ctx context.Context, device *model.Device) error
	UpdateDevice(ctx context.Context, id string, patch DevicePatch) (*model.Device, error)
	UpdateDeviceStatus(ctx context.Context, id string, status model.DeviceStatus, seenAt time.Time) error
	DeleteDevice(ctx context.Context, id string) error

	// Status history (append-only).
	AppendStatusHistory(ctx context.Context, entry *model.StatusHistory) error
	ListDeviceHistory(ctx context.Context, deviceID string, limit int) ([]model.StatusHistory, error)

	// Notification settings (at most one row).
	GetNotificationSettings(ctx context.Context) (*model.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, settings *model.NotificationSettings) error
}
