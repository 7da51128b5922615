package uhubctl

import "fmt"

// Port power bits in the hub port status word.
const (
	// PowerBitUSB2 is PORT_POWER for USB 2.x hubs.
	PowerBitUSB2 uint16 = 0x0100

	// PowerBitUSB3 is PORT_POWER for USB 3.x (SuperSpeed) hubs.
	PowerBitUSB3 uint16 = 0x0200
)

// PowerBit returns the status-word bit that signals port power for a hub of
// the given USB major version.
func PowerBit(usbMajor int) uint16 {
	if usbMajor == 3 {
		return PowerBitUSB3
	}
	return PowerBitUSB2
}

// PortPowered decodes a port status word. All bits other than the
// version-specific power bit are ignored.
func PortPowered(usbMajor int, status uint16) bool {
	return status&PowerBit(usbMajor) != 0
}

// Hub is a smart hub reported by uhubctl.
//
// Declared fields are set once by the parser. Ports only ever contain
// numbers within 1..NumPorts, each at most once.
type Hub struct {
	// Location is the bus path uhubctl uses to address the hub (e.g. "1-3").
	Location string

	// VendorID and ProductID are the hub's USB identifiers.
	VendorID  uint16
	ProductID uint16

	// USBVersion is the USB major version (2 or 3).
	USBVersion int

	// NumPorts is the port count declared in the hub header.
	NumPorts int

	// Ports are the ports whose status was observed, in output order.
	Ports []*Port
}

// Port returns the port with the given number, or nil if it was not observed.
func (h *Hub) Port(number int) *Port {
	for _, p := range h.Ports {
		if p.Number == number {
			return p
		}
	}
	return nil
}

// addPort appends a port decoded from a status word. It reports false and
// leaves the hub unchanged if the number is out of range or already present.
func (h *Hub) addPort(number int, status uint16) bool {
	if number < 1 || number > h.NumPorts || h.Port(number) != nil {
		return false
	}
	h.Ports = append(h.Ports, NewPort(h.Location, number, PortPowered(h.USBVersion, status)))
	return true
}

// Clone returns a deep copy of the hub and its ports.
func (h *Hub) Clone() *Hub {
	c := *h
	c.Ports = make([]*Port, len(h.Ports))
	for i, p := range h.Ports {
		port := *p
		c.Ports[i] = &port
	}
	return &c
}

// String implements fmt.Stringer.
func (h *Hub) String() string {
	return fmt.Sprintf("hub %s [%04x:%04x] USB %d, %d ports", h.Location, h.VendorID, h.ProductID, h.USBVersion, h.NumPorts)
}

// Port is one switchable power output of a hub.
type Port struct {
	// HubLocation refers back to the owning hub.
	HubLocation string

	// Number is the 1-based port number.
	Number int

	enabled bool
}

// NewPort creates a port with an observed power state.
func NewPort(hubLocation string, number int, enabled bool) *Port {
	return &Port{
		HubLocation: hubLocation,
		Number:      number,
		enabled:     enabled,
	}
}

// Enabled reports whether port power was on at the last observation.
func (p *Port) Enabled() bool {
	return p.enabled
}

// SetEnabled records a newly observed power state.
// Only call this with a value parsed from uhubctl output.
func (p *Port) SetEnabled(enabled bool) {
	p.enabled = enabled
}
