package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"device-monitor-backend/internal/model"
)

// gormStore implements Store on top of a relational database via GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Credentials ---

func (s *gormStore) GetCredentials(ctx context.Context) (*model.Credential, error) {
	var cred model.Credential
	if err := s.db.WithContext(ctx).First(&cred).Error; err != nil {
		return nil, translateErr(err)
	}
	return &cred, nil
}

// SaveCredentials enforces the single-row invariant with delete-then-insert
// inside one transaction.
func (s *gormStore) SaveCredentials(ctx context.Context, cred *model.Credential) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Credential{}).Error; err != nil {
			return fmt.Errorf("clear previous credentials: %w", err)
		}
		return tx.Create(cred).Error
	})
}

func (s *gormStore) UpdateSession(ctx context.Context, id string, sess SessionUpdate) error {
	res := s.db.WithContext(ctx).Model(&model.Credential{}).Where("id = ?", id).
		Updates(map[string]any{
			"session_id":     sess.SessionID,
			"feature_code":   sess.FeatureCode,
			"customer_no":    sess.CustomerNo,
			"session_expiry": sess.Expiry,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Credential{}).Where("id = ?", id).
		Update("last_sync", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Branches ---

func (s *gormStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	if err := s.db.WithContext(ctx).Order("created_at").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *gormStore) GetBranch(ctx context.Context, id string) (*model.Branch, error) {
	var branch model.Branch
	if err := s.db.WithContext(ctx).First(&branch, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &branch, nil
}

func (s *gormStore) CreateBranch(ctx context.Context, branch *model.Branch) error {
	return s.db.WithContext(ctx).Create(branch).Error
}

func (s *gormStore) UpdateBranch(ctx context.Context, id string, patch BranchPatch) (*model.Branch, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.State != nil {
		updates["state"] = *patch.State
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&model.Branch{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetBranch(ctx, id)
}

// DeleteBranch removes the branch only. Devices mapped to it keep their
// branch_id; the dangling reference is accepted behavior.
func (s *gormStore) DeleteBranch(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Branch{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Devices ---

func (s *gormStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Order("created_at").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *gormStore) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	var device model.Device
	if err := s.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &device, nil
}

func (s *gormStore) GetDeviceByExternalID(ctx context.Context, externalID string) (*model.Device, error) {
	var device model.Device
	if err := s.db.WithContext(ctx).First(&device, "external_id = ?", externalID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &device, nil
}

func (s *gormStore) CreateDevice(ctx context.Context, device *model.Device) error {
	return s.db.WithContext(ctx).Create(device).Error
}

func (s *gormStore) UpdateDevice(ctx context.Context, id string, patch DevicePatch) (*model.Device, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Serial != nil {
		updates["serial"] = *patch.Serial
	}
	if patch.Type != nil {
		updates["type"] = *patch.Type
	}
	if patch.Version != nil {
		updates["version"] = *patch.Version
	}
	if patch.IPAddress != nil {
		updates["ip_address"] = *patch.IPAddress
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.LastSeen != nil {
		updates["last_seen"] = *patch.LastSeen
	}
	if patch.BranchID != nil {
		if *patch.BranchID == "" {
			updates["branch_id"] = nil
		} else {
			updates["branch_id"] = *patch.BranchID
		}
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		res := s.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetDevice(ctx, id)
}

func (s *gormStore) UpdateDeviceStatus(ctx context.Context, id string, status model.DeviceStatus, seenAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Device{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_seen":  seenAt,
			"updated_at": seenAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteDevice(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Device{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Status history ---

func (s *gormStore) AppendStatusHistory(ctx context.Context, entry *model.StatusHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *gormStore) ListDeviceHistory(ctx context.Context, deviceID string, limit int) ([]model.StatusHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var entries []model.StatusHistory
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// --- Notification settings ---

func (s *gormStore) GetNotificationSettings(ctx context.Context) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	if err := s.db.WithContext(ctx).First(&settings).Error; err != nil {
		return nil, translateErr(err)
	}
	return &settings, nil
}

// SaveNotificationSettings replaces the singleton row, mirroring
// SaveCredentials.
func (s *gormStore) SaveNotificationSettings(ctx context.Context, settings *model.NotificationSettings) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.NotificationSettings{}).Error; err != nil {
			return fmt.Errorf("clear previous settings: %w", err)
		}
		return tx.Create(settings).Error
	})
}
