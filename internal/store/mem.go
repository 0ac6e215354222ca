package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"device-monitor-backend/internal/model"
)

// memStore is the map-backed Store used when no database is configured.
// Data lives only for the lifetime of the process.
type memStore struct {
	mu         sync.RWMutex
	credential *model.Credential
	branches   map[string]model.Branch
	devices    map[string]model.Device
	history    []model.StatusHistory
	settings   *model.NotificationSettings
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() Store {
	return &memStore{
		branches: make(map[string]model.Branch),
		devices:  make(map[string]model.Device),
	}
}

// --- Credentials ---

func (s *memStore) GetCredentials(ctx context.Context) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return nil, ErrNotFound
	}
	cred := *s.credential
	return &cred, nil
}

func (s *memStore) SaveCredentials(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	if cred.AuthMode == "" {
		cred.AuthMode = model.AuthModeSessionTicket
	}
	cred.CreatedAt = time.Now().UTC()
	stored := *cred
	s.credential = &stored
	return nil
}

func (s *memStore) UpdateSession(ctx context.Context, id string, sess SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil || s.credential.ID != id {
		return ErrNotFound
	}
	s.credential.SessionID = sess.SessionID
	s.credential.FeatureCode = sess.FeatureCode
	s.credential.CustomerNo = sess.CustomerNo
	s.credential.SessionExpiry = sess.Expiry
	return nil
}

func (s *memStore) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil || s.credential.ID != id {
		return ErrNotFound
	}
	s.credential.LastSync = &at
	return nil
}

// --- Branches ---

func (s *memStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]model.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool {
		return branches[i].CreatedAt.Before(branches[j].CreatedAt)
	})
	return branches, nil
}

func (s *memStore) GetBranch(ctx context.Context, id string) (*model.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branch, ok := s.branches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &branch, nil
}

func (s *memStore) CreateBranch(ctx context.Context, branch *model.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	branch.CreatedAt = time.Now().UTC()
	s.branches[branch.ID] = *branch
	return nil
}

func (s *memStore) UpdateBranch(ctx context.Context, id string, patch BranchPatch) (*model.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	branch, ok := s.branches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		branch.Name = *patch.Name
	}
	if patch.Email != nil {
		branch.Email = *patch.Email
	}
	if patch.State != nil {
		branch.State = *patch.State
	}
	s.branches[id] = branch
	return &branch, nil
}

// DeleteBranch leaves devices pointing at the removed branch untouched.
func (s *memStore) DeleteBranch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[id]; !ok {
		return ErrNotFound
	}
	delete(s.branches, id)
	return nil
}

// --- Devices ---

func (s *memStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devices := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].CreatedAt.Before(devices[j].CreatedAt)
	})
	return devices, nil
}

func (s *memStore) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &device, nil
}

func (s *memStore) GetDeviceByExternalID(ctx context.Context, externalID string) (*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ExternalID == externalID {
			device := d
			return &device, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) CreateDevice(ctx context.Context, device *model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.Status == "" {
		device.Status = model.StatusUnknown
	}
	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now
	s.devices[device.ID] = *device
	return nil
}

func (s *memStore) UpdateDevice(ctx context.Context, id string, patch DevicePatch) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		device.Name = *patch.Name
	}
	if patch.Serial != nil {
		device.Serial = *patch.Serial
	}
	if patch.Type != nil {
		device.Type = *patch.Type
	}
	if patch.Version != nil {
		device.Version = *patch.Version
	}
	if patch.IPAddress != nil {
		device.IPAddress = *patch.IPAddress
	}
	if patch.Status != nil {
		device.Status = *patch.Status
	}
	if patch.LastSeen != nil {
		device.LastSeen = patch.LastSeen
	}
	if patch.BranchID != nil {
		if *patch.BranchID == "" {
			device.BranchID = nil
		} else {
			branchID := *patch.BranchID
			device.BranchID = &branchID
		}
	}
	device.UpdatedAt = time.Now().UTC()
	s.devices[id] = device
	return &device, nil
}

func (s *memStore) UpdateDeviceStatus(ctx context.Context, id string, status model.DeviceStatus, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[id]
	if !ok {
		return ErrNotFound
	}
	device.Status = status
	device.LastSeen = &seenAt
	device.UpdatedAt = seenAt
	s.devices[id] = device
	return nil
}

func (s *memStore) DeleteDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return ErrNotFound
	}
	delete(s.devices, id)
	return nil
}

// --- Status history ---

func (s *memStore) AppendStatusHistory(ctx context.Context, entry *model.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CheckedAt.IsZero() {
		entry.CheckedAt = time.Now().UTC()
	}
	s.history = append(s.history, *entry)
	return nil
}

func (s *memStore) ListDeviceHistory(ctx context.Context, deviceID string, limit int) ([]model.StatusHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []model.StatusHistory
	for _, e := range s.history {
		if e.DeviceID == deviceID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CheckedAt.After(entries[j].CheckedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// --- Notification settings ---

func (s *memStore) GetNotificationSettings(ctx context.Context) (*model.NotificationSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, ErrNotFound
	}
	settings := *s.settings
	return &settings, nil
}

func (s *memStore) SaveNotificationSettings(ctx context.Context, settings *model.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()
	stored := *settings
	s.settings = &stored
	return nil
}
