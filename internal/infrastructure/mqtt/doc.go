// Package mqtt provides MQTT client connectivity for the uhubctl bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect after the first session
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Connection Lifecycle
//
// Connect makes a single attempt. A broker that is unreachable or refuses
// the CONNACK produces an error wrapping ErrConnectionFailed. Once
// connected, paho reconnects with backoff; each later session re-subscribes
// every tracked topic and then runs the SetOnReconnect callback.
//
// Close sends a clean DISCONNECT, so the broker discards the will. Publish
// any offline status before calling Close.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Will{
//	    Topic: "home/usbhub/status", Payload: "Offline", QoS: 1, Retained: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("home/usbhub/cmnd/#", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
