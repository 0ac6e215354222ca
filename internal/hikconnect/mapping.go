package hikconnect

// rawDevice models a device record as the portal returns it. The portal has
// shipped the same data under different field names across API revisions,
// so both spellings are captured and resolved with a fixed precedence.
type rawDevice struct {
	DeviceID        string `json:"deviceId"`
	ID              string `json:"id"`
	DeviceName      string `json:"deviceName"`
	Name            string `json:"name"`
	DeviceSerial    string `json:"deviceSerial"`
	Serial          string `json:"serial"`
	DeviceType      string `json:"deviceType"`
	Type            string `json:"type"`
	Version         string `json:"version"`
	FirmwareVersion string `json:"firmwareVersion"`
	IPAddress       string `json:"ipAddress"`
	Status          *int   `json:"status"`
	IsOnline        *int   `json:"isOnline"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// mapDevice canonicalises a raw portal record. Precedence per field:
// deviceId > id, deviceName > name, deviceSerial > serial, deviceType > type,
// version > firmwareVersion, status > isOnline. Records without an external
// id or serial are unusable and rejected.
func mapDevice(raw rawDevice) (VendorDevice, bool) {
	device := VendorDevice{
		ExternalID: firstNonEmpty(raw.DeviceID, raw.ID),
		Name:       firstNonEmpty(raw.DeviceName, raw.Name),
		Serial:     firstNonEmpty(raw.DeviceSerial, raw.Serial),
		Type:       firstNonEmpty(raw.DeviceType, raw.Type),
		Version:    firstNonEmpty(raw.Version, raw.FirmwareVersion),
		IPAddress:  raw.IPAddress,
	}
	if device.ExternalID == "" || device.Serial == "" {
		return VendorDevice{}, false
	}
	if device.Name == "" {
		device.Name = device.Serial
	}
	switch {
	case raw.Status != nil:
		device.Online = *raw.Status == 1
	case raw.IsOnline != nil:
		device.Online = *raw.IsOnline == 1
	}
	return device, true
}
