package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"device-monitor-backend/config"
	"device-monitor-backend/internal/hikconnect"
	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

// TestDeviceLifecycle simulates the full monitoring lifecycle against an
// in-memory database and a mocked vendor portal: saving credentials,
// syncing a device into a branch, then watching it go offline and verifying
// the transition log.
func TestDeviceLifecycle(t *testing.T) {
	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	err = testDB.AutoMigrate(
		&model.Credential{},
		&model.Branch{},
		&model.Device{},
		&model.StatusHistory{},
		&model.NotificationSettings{},
	)
	require.NoError(t, err)

	// 2. Mock portal: one login endpoint and a device lookup whose reported
	// status flips from online to offline on the second call.
	var lookupCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/hcc/auth/security/v1/ticket/login":
			json.NewEncoder(w).Encode(map[string]any{
				"ticket":      "integration-ticket",
				"featureCode": "fc-1",
				"customNo":    "cn-1",
				"expireTime":  time.Now().Add(6 * time.Hour).Unix(),
			})
		case "/hcc/device/resource/v1/serials/batch":
			status := 1
			if lookupCount > 0 {
				status = 0
			}
			lookupCount++
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"deviceId":     "hik-101",
					"deviceName":   "Front Gate Camera",
					"deviceSerial": "DS-101",
					"deviceType":   "IP Camera",
					"version":      "V5.6.3",
					"status":       status,
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	// 3. Instantiate the store and the reconciliation service with a real
	// portal client pointed at the mock server.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	gormStore := store.NewGormStore(testDB)
	vendorCfg := config.VendorConfig{BaseURL: server.URL, Timeout: 2 * time.Second}
	factory := func(cred *model.Credential) (recon.Gateway, error) {
		return hikconnect.NewClient(cred, vendorCfg, log)
	}
	svc := recon.NewService(gormStore, factory, nil, log)

	ctx := context.Background()

	// 4. Before credentials are saved, nothing can sync.
	_, err = svc.SyncSerials(ctx, []string{"DS-101"}, nil)
	require.ErrorIs(t, err, recon.ErrNoCredentials)

	cred := &model.Credential{Username: "ops@example.com", Password: "pw"}
	require.NoError(t, gormStore.SaveCredentials(ctx, cred))

	branch := &model.Branch{Name: "Head Office", Email: "ho@example.com", State: "Karnataka"}
	require.NoError(t, gormStore.CreateBranch(ctx, branch))

	// 5. First sync: the device appears online, assigned to the branch,
	// with no history entry yet.
	synced, err := svc.SyncSerials(ctx, []string{"DS-101"}, &branch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	device, err := gormStore.GetDeviceByExternalID(ctx, "hik-101")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnline, device.Status)
	assert.Equal(t, "Front Gate Camera", device.Name)
	require.NotNil(t, device.BranchID)
	assert.Equal(t, branch.ID, *device.BranchID)

	history, err := gormStore.ListDeviceHistory(ctx, device.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The session obtained during the sync is persisted on the credential.
	storedCred, err := gormStore.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "integration-ticket", storedCred.SessionID)
	assert.NotNil(t, storedCred.LastSync)

	// 6. Second pass: the portal now reports the device offline. The status
	// check records exactly one transition.
	checked, changes, err := svc.CheckAllStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 1, changes)

	device, err = gormStore.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOffline, device.Status)

	history, err = gormStore.ListDeviceHistory(ctx, device.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusOffline, history[0].Status)

	// 7. Deleting the branch leaves the device dangling, not deleted.
	require.NoError(t, gormStore.DeleteBranch(ctx, branch.ID))

	device, err = gormStore.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, device.BranchID)
	assert.Equal(t, branch.ID, *device.BranchID)
}
