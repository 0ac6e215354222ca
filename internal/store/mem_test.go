package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-monitor-backend/internal/model"
)

func TestMemStore_CredentialsSingleton(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.GetCredentials(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &model.Credential{Username: "first@example.com", Password: "pw1"}
	require.NoError(t, s.SaveCredentials(ctx, first))
	require.NotEmpty(t, first.ID)
	assert.Equal(t, model.AuthModeSessionTicket, first.AuthMode)

	second := &model.Credential{Username: "second@example.com", Password: "pw2", AuthMode: model.AuthModeAPIKey}
	require.NoError(t, s.SaveCredentials(ctx, second))

	got, err := s.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", got.Username)
	assert.Equal(t, model.AuthModeAPIKey, got.AuthMode)
}

func TestMemStore_UpdateSession(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	cred := &model.Credential{Username: "ops@example.com"}
	require.NoError(t, s.SaveCredentials(ctx, cred))

	expiry := time.Now().Add(12 * time.Hour)
	err := s.UpdateSession(ctx, cred.ID, SessionUpdate{
		SessionID:   "ticket-1",
		FeatureCode: "fc",
		CustomerNo:  "cn",
		Expiry:      &expiry,
	})
	require.NoError(t, err)

	got, err := s.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", got.SessionID)
	assert.Equal(t, "fc", got.FeatureCode)
	require.NotNil(t, got.SessionExpiry)
	assert.True(t, got.SessionExpiry.Equal(expiry))

	assert.ErrorIs(t, s.UpdateSession(ctx, "no-such-id", SessionUpdate{}), ErrNotFound)

	syncedAt := time.Now().UTC()
	require.NoError(t, s.UpdateLastSync(ctx, cred.ID, syncedAt))
	got, err = s.GetCredentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.LastSync)
	assert.True(t, got.LastSync.Equal(syncedAt))
}

func TestMemStore_BranchLifecycle(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	branch := &model.Branch{Name: "Mumbai Office", Email: "mumbai@example.com", State: "Maharashtra"}
	require.NoError(t, s.CreateBranch(ctx, branch))
	require.NotEmpty(t, branch.ID)

	newName := "Mumbai HQ"
	updated, err := s.UpdateBranch(ctx, branch.ID, BranchPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai HQ", updated.Name)
	assert.Equal(t, "Maharashtra", updated.State)

	_, err = s.UpdateBranch(ctx, "missing", BranchPatch{Name: &newName})
	assert.ErrorIs(t, err, ErrNotFound)

	branches, err := s.ListBranches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 1)

	require.NoError(t, s.DeleteBranch(ctx, branch.ID))
	assert.ErrorIs(t, s.DeleteBranch(ctx, branch.ID), ErrNotFound)
}

func TestMemStore_DeleteBranchLeavesDevicesDangling(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	branch := &model.Branch{Name: "Delhi", Email: "delhi@example.com", State: "Delhi"}
	require.NoError(t, s.CreateBranch(ctx, branch))

	device := &model.Device{ExternalID: "ext-1", Name: "cam", Serial: "S1", BranchID: &branch.ID}
	require.NoError(t, s.CreateDevice(ctx, device))

	require.NoError(t, s.DeleteBranch(ctx, branch.ID))

	got, err := s.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, branch.ID, *got.BranchID)
}

func TestMemStore_DeviceLifecycle(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	device := &model.Device{ExternalID: "ext-1", Name: "Camera-1", Serial: "S1"}
	require.NoError(t, s.CreateDevice(ctx, device))
	require.NotEmpty(t, device.ID)
	assert.Equal(t, model.StatusUnknown, device.Status)

	byExt, err := s.GetDeviceByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, device.ID, byExt.ID)

	_, err = s.GetDeviceByExternalID(ctx, "ext-unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	online := model.StatusOnline
	name := "Camera-1-renamed"
	updated, err := s.UpdateDevice(ctx, device.ID, DevicePatch{Name: &name, Status: &online})
	require.NoError(t, err)
	assert.Equal(t, "Camera-1-renamed", updated.Name)
	assert.Equal(t, model.StatusOnline, updated.Status)
	assert.Equal(t, "S1", updated.Serial)

	seenAt := time.Now().UTC()
	require.NoError(t, s.UpdateDeviceStatus(ctx, device.ID, model.StatusOffline, seenAt))
	got, err := s.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOffline, got.Status)
	require.NotNil(t, got.LastSeen)
	assert.True(t, got.LastSeen.Equal(seenAt))

	require.NoError(t, s.DeleteDevice(ctx, device.ID))
	_, err = s.GetDevice(ctx, device.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteDevice(ctx, device.ID), ErrNotFound)
}

func TestMemStore_DeviceBranchAssignment(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	device := &model.Device{ExternalID: "ext-1", Name: "cam", Serial: "S1"}
	require.NoError(t, s.CreateDevice(ctx, device))

	branchID := "branch-1"
	updated, err := s.UpdateDevice(ctx, device.ID, DevicePatch{BranchID: &branchID})
	require.NoError(t, err)
	require.NotNil(t, updated.BranchID)
	assert.Equal(t, "branch-1", *updated.BranchID)

	// An empty branch id unassigns.
	empty := ""
	updated, err = s.UpdateDevice(ctx, device.ID, DevicePatch{BranchID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.BranchID)
}

func TestMemStore_StatusHistory(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &model.StatusHistory{
			DeviceID:  "dev-1",
			Status:    model.StatusOnline,
			CheckedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendStatusHistory(ctx, entry))
	}
	require.NoError(t, s.AppendStatusHistory(ctx, &model.StatusHistory{
		DeviceID:  "dev-other",
		Status:    model.StatusOffline,
		CheckedAt: base,
	}))

	entries, err := s.ListDeviceHistory(ctx, "dev-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Newest first.
	assert.True(t, entries[0].CheckedAt.After(entries[1].CheckedAt))
	assert.True(t, entries[1].CheckedAt.After(entries[2].CheckedAt))

	limited, err := s.ListDeviceHistory(ctx, "dev-1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.True(t, limited[0].CheckedAt.Equal(entries[0].CheckedAt))
}

func TestMemStore_NotificationSettingsSingleton(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.GetNotificationSettings(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &model.NotificationSettings{Enabled: true, Email: "a@example.com", Threshold: 5, CheckInterval: 15}
	require.NoError(t, s.SaveNotificationSettings(ctx, first))

	second := &model.NotificationSettings{Enabled: false, Email: "b@example.com", Threshold: 3, CheckInterval: 30}
	require.NoError(t, s.SaveNotificationSettings(ctx, second))

	got, err := s.GetNotificationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Email)
	assert.Equal(t, 3, got.Threshold)
	assert.False(t, got.Enabled)
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	device := &model.Device{ExternalID: "ext-1", Name: "original", Serial: "S1"}
	require.NoError(t, s.CreateDevice(ctx, device))

	got, err := s.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Name)
}
