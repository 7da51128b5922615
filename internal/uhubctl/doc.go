// Package uhubctl reads and switches per-port power on USB hubs through the
// uhubctl command-line utility.
//
// uhubctl is treated as a black box with a fixed text contract. A status
// invocation prints one block per smart hub:
//
//	Current status for hub 1-3 [2109:0817 VIA Labs, Inc. USB3.0 Hub, USB 3.00, 4 ports, ppps]
//	  Port 1: 02a0 power 5gbps Rx.Detect
//	  Port 2: 0203 power 5gbps U0 enable connect [0bda:8153 ...]
//	  ...
//
// The four hex digits after "Port N:" are the raw port status word. Whether
// the port is powered depends on the hub's USB generation:
//
//   - USB 3.x hubs: bit 0x0200 (USB 3.0 spec, Table 10-10, PORT_POWER)
//   - USB 2.x hubs: bit 0x0100 (USB 2.0 spec, Table 11-21, PORT_POWER)
//
// # Components
//
//   - Parse turns captured output into ordered Hub values.
//   - Controller runs uhubctl through a Runner, fetches the full status and
//     applies single-port power actions, reconciling the in-memory Port to
//     the state uhubctl reports after the action.
//
// A hub can accept a power command in software and still refuse to switch,
// so Controller never assumes the requested state took effect.
package uhubctl
