package mqtt

import "errors"

var (
	// ErrNotConnected means there is no broker session. Publishes are not
	// queued while paho reconnects.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the first connection attempt failed or the
	// broker refused it in its CONNACK. It is fatal at startup.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed   = errors.New("mqtt: publish failed")
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	ErrInvalidQoS   = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
