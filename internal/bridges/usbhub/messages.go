package usbhub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
)

// Availability payloads.
const (
	PayloadOnline  = "Online"
	PayloadOffline = "Offline"
)

// stateTimeLayout is the local timestamp format of the Time field.
const stateTimeLayout = "2006-01-02 15:04:05"

// Power values used in POWER<n> fields.
const (
	powerOn  = "ON"
	powerOff = "OFF"
)

// StatePayload encodes the retained state message for a hub.
//
// The payload is a flat JSON object with Time, Location, Vid, Pid,
// USBVersion and one POWER<n> field per observed port. Keys are emitted in
// sorted order, so two calls for an unchanged hub differ only in Time.
func StatePayload(hub *uhubctl.Hub, now time.Time) ([]byte, error) {
	state := map[string]any{
		"Time":       now.Format(stateTimeLayout),
		"Location":   hub.Location,
		"Vid":        hub.VendorID,
		"Pid":        hub.ProductID,
		"USBVersion": hub.USBVersion,
	}

	for _, port := range hub.Ports {
		state[fmt.Sprintf("POWER%d", port.Number)] = powerValue(port.Enabled())
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding state for hub %s: %w", hub.Location, err)
	}
	return data, nil
}

func powerValue(enabled bool) string {
	if enabled {
		return powerOn
	}
	return powerOff
}
