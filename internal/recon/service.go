package recon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"device-monitor-backend/internal/hikconnect"
	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/notification"
	"device-monitor-backend/internal/store"
)

// ErrNoCredentials is returned when a sync or status check is requested
// before any vendor credentials have been saved.
var ErrNoCredentials = errors.New("no vendor credentials configured")

// Gateway is the portal surface the engine needs; satisfied by
// *hikconnect.Client and by fakes in tests.
type Gateway interface {
	Authenticate(ctx context.Context) (hikconnect.Session, error)
	IsSessionValid() bool
	Session() hikconnect.Session
	FetchDevicesBySerials(ctx context.Context, serials []string) ([]hikconnect.VendorDevice, error)
}

// GatewayFactory builds a gateway from the stored credential set. A fresh
// gateway is built per operation so each one starts from the persisted
// session state.
type GatewayFactory func(cred *model.Credential) (Gateway, error)

// Service turns batches of vendor device records into local state changes
// and a transition log.
type Service struct {
	store      store.Store
	newGateway GatewayFactory
	alerts     *notification.WorkerPool
	log        *logrus.Entry

	// sessionMu serializes session writes to the single credential row so a
	// manual trigger and a scheduled tick cannot clobber each other's
	// refresh.
	sessionMu sync.Mutex

	alertMu        sync.Mutex
	aboveThreshold bool
}

// NewService creates the reconciliation engine. alerts may be nil when
// alerting is not configured.
func NewService(s store.Store, factory GatewayFactory, alerts *notification.WorkerPool, logger *logrus.Entry) *Service {
	return &Service{
		store:      s,
		newGateway: factory,
		alerts:     alerts,
		log:        logger,
	}
}

// Reconcile upserts the given vendor device records into the local store,
// keyed by external id. When branchID is non-nil, matched and created
// devices are assigned to that branch. A single device's failure is logged
// and does not abort the batch; the returned count covers successful
// upserts only. Re-running with identical input changes nothing and logs
// nothing new.
func (s *Service) Reconcile(ctx context.Context, vendorDevices []hikconnect.VendorDevice, branchID *string) int {
	upserted := 0
	now := time.Now().UTC()

	for _, vd := range vendorDevices {
		status := model.StatusOffline
		if vd.Online {
			status = model.StatusOnline
		}

		existing, err := s.store.GetDeviceByExternalID(ctx, vd.ExternalID)
		switch {
		case err == nil:
			patch := store.DevicePatch{
				Name:     &vd.Name,
				Serial:   &vd.Serial,
				Status:   &status,
				LastSeen: &now,
			}
			if vd.Type != "" {
				patch.Type = &vd.Type
			}
			if vd.Version != "" {
				patch.Version = &vd.Version
			}
			if vd.IPAddress != "" {
				patch.IPAddress = &vd.IPAddress
			}
			if branchID != nil {
				patch.BranchID = branchID
			}

			changed := existing.Status != status
			if _, err := s.store.UpdateDevice(ctx, existing.ID, patch); err != nil {
				s.log.WithError(err).Errorf("failed to update device %s (%s)", existing.ID, vd.Serial)
				continue
			}
			if changed {
				if err := s.store.AppendStatusHistory(ctx, &model.StatusHistory{
					DeviceID:  existing.ID,
					Status:    status,
					CheckedAt: now,
				}); err != nil {
					s.log.WithError(err).Errorf("failed to record status history for device %s", existing.ID)
				}
			}
			upserted++

		case errors.Is(err, store.ErrNotFound):
			device := &model.Device{
				ExternalID: vd.ExternalID,
				Name:       vd.Name,
				Serial:     vd.Serial,
				Type:       vd.Type,
				Version:    vd.Version,
				IPAddress:  vd.IPAddress,
				Status:     status,
				LastSeen:   &now,
				BranchID:   branchID,
			}
			if err := s.store.CreateDevice(ctx, device); err != nil {
				s.log.WithError(err).Errorf("failed to create device %s", vd.Serial)
				continue
			}
			upserted++

		default:
			s.log.WithError(err).Errorf("failed to look up device by external id %s", vd.ExternalID)
		}
	}
	return upserted
}

// CheckAndRecordStatus compares newStatus to the stored status; on a
// transition it updates the device and appends a history entry, returning
// true. An unchanged status is a no-op: lastSeen is deliberately not
// refreshed on unchanged polls.
func (s *Service) CheckAndRecordStatus(ctx context.Context, device *model.Device, newStatus model.DeviceStatus) (bool, error) {
	if device.Status == newStatus {
		return false, nil
	}

	now := time.Now().UTC()
	if err := s.store.UpdateDeviceStatus(ctx, device.ID, newStatus, now); err != nil {
		return false, fmt.Errorf("update device status: %w", err)
	}
	if err := s.store.AppendStatusHistory(ctx, &model.StatusHistory{
		DeviceID:  device.ID,
		Status:    newStatus,
		CheckedAt: now,
	}); err != nil {
		return false, fmt.Errorf("append status history: %w", err)
	}
	s.log.Infof("device %s status changed: %s -> %s", device.Name, device.Status, newStatus)
	return true, nil
}

// SyncSerials fetches the given serials from the portal and reconciles the
// result, optionally assigning the devices to a branch. The refreshed
// session and last-sync timestamp are persisted afterwards.
func (s *Service) SyncSerials(ctx context.Context, serials []string, branchID *string) (int, error) {
	cred, err := s.credentials(ctx)
	if err != nil {
		return 0, err
	}

	gw, err := s.newGateway(cred)
	if err != nil {
		return 0, fmt.Errorf("build vendor gateway: %w", err)
	}

	vendorDevices, err := gw.FetchDevicesBySerials(ctx, serials)
	if err != nil {
		return 0, fmt.Errorf("fetch devices from portal: %w", err)
	}

	upserted := s.Reconcile(ctx, vendorDevices, branchID)
	s.persistSession(ctx, cred, gw)
	return upserted, nil
}

// CheckAllStatuses fetches the current portal state for every known local
// device and records status transitions. Returns the number of devices
// covered by the portal response and the number of transitions recorded.
func (s *Service) CheckAllStatuses(ctx context.Context) (checked int, changes int, err error) {
	cred, err := s.credentials(ctx)
	if err != nil {
		return 0, 0, err
	}

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return 0, 0, nil
	}

	serials := make([]string, 0, len(devices))
	for _, d := range devices {
		serials = append(serials, d.Serial)
	}

	gw, err := s.newGateway(cred)
	if err != nil {
		return 0, 0, fmt.Errorf("build vendor gateway: %w", err)
	}

	vendorDevices, err := gw.FetchDevicesBySerials(ctx, serials)
	if err != nil {
		s.persistSession(ctx, cred, gw)
		return 0, 0, fmt.Errorf("fetch device statuses from portal: %w", err)
	}

	bySerial := make(map[string]hikconnect.VendorDevice, len(vendorDevices))
	for _, vd := range vendorDevices {
		bySerial[vd.Serial] = vd
	}

	for i := range devices {
		device := &devices[i]
		vd, ok := bySerial[device.Serial]
		if !ok {
			continue
		}
		newStatus := model.StatusOffline
		if vd.Online {
			newStatus = model.StatusOnline
		}
		changed, err := s.CheckAndRecordStatus(ctx, device, newStatus)
		if err != nil {
			s.log.WithError(err).Errorf("failed to check device %s", device.Name)
			continue
		}
		if changed {
			changes++
		}
		checked++
	}

	s.persistSession(ctx, cred, gw)
	s.evaluateAlerts(ctx)
	return checked, changes, nil
}

func (s *Service) credentials(ctx context.Context) (*model.Credential, error) {
	cred, err := s.store.GetCredentials(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return cred, nil
}

// persistSession writes the gateway's refreshed session and the last-sync
// timestamp back to the credential row. Writes are serialized so
// concurrent sync paths cannot overwrite each other's refresh.
func (s *Service) persistSession(ctx context.Context, cred *model.Credential, gw Gateway) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	sess := gw.Session()
	if sess.Token != "" && sess.Token != cred.SessionID {
		expiry := sess.Expiry
		err := s.store.UpdateSession(ctx, cred.ID, store.SessionUpdate{
			SessionID:   sess.Token,
			FeatureCode: sess.FeatureCode,
			CustomerNo:  sess.CustomerNo,
			Expiry:      &expiry,
		})
		if err != nil {
			s.log.WithError(err).Error("failed to persist refreshed vendor session")
		}
	}

	if err := s.store.UpdateLastSync(ctx, cred.ID, time.Now().UTC()); err != nil {
		s.log.WithError(err).Error("failed to update last-sync timestamp")
	}
}

// evaluateAlerts fires an email when the offline-device count crosses the
// configured threshold, and a recovery email when it drops back below.
// An alert fires on the crossing only, not on every batch above it.
func (s *Service) evaluateAlerts(ctx context.Context) {
	if s.alerts == nil {
		return
	}

	settings, err := s.store.GetNotificationSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to load notification settings")
		return
	}
	if !settings.Enabled || settings.Email == "" {
		return
	}

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to count offline devices")
		return
	}
	offline := 0
	for _, d := range devices {
		if d.Status == model.StatusOffline {
			offline++
		}
	}

	s.alertMu.Lock()
	defer s.alertMu.Unlock()

	above := offline >= settings.Threshold
	switch {
	case above && !s.aboveThreshold && settings.OfflineAlert:
		s.alerts.Dispatch(notification.Alert{
			Recipient: settings.Email,
			Subject:   fmt.Sprintf("%d devices offline", offline),
			Body: fmt.Sprintf("The number of offline devices reached %d (threshold %d out of %d monitored).",
				offline, settings.Threshold, len(devices)),
		})
	case !above && s.aboveThreshold && settings.OnlineAlert:
		s.alerts.Dispatch(notification.Alert{
			Recipient: settings.Email,
			Subject:   "Devices back online",
			Body: fmt.Sprintf("The number of offline devices dropped to %d, below the threshold of %d.",
				offline, settings.Threshold),
		})
	}
	s.aboveThreshold = above
}
