// Package usbhub bridges uhubctl-controlled USB hubs to MQTT.
//
// The bridge keeps an in-memory snapshot of every smart hub uhubctl reports,
// publishes one retained state message per hub, and switches port power in
// response to command messages.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐
//	│ Home automation │   MQTT   │  USB hub bridge │  uhubctl
//	│                 │◄────────►│   (this pkg)    │◄────────► USB hubs
//	└─────────────────┘          └─────────────────┘
//
// # Topics
//
//   - <command>/HUB<location>/POWER<n>  inbound, payload "on" or "off"
//   - <status>/HUB<location>/STATE      outbound, retained JSON state
//   - <availability>                    retained "Online" / "Offline"
//
// Example state payload:
//
//	{"Location":"1-3","POWER1":"ON","POWER2":"OFF","Pid":2071,
//	 "Time":"2024-05-01 12:00:00","USBVersion":3,"Vid":8457}
//
// # Thread Safety
//
// Command messages may arrive concurrently. A single mutex serialises every
// snapshot read, port action and publish, so each published state is a
// fully applied one.
package usbhub
