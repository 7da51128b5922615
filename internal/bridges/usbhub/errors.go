package usbhub

import "errors"

// Domain errors for the USB hub bridge package.
var (
	// ErrInvalidTopic is returned when a command topic does not have the
	// shape <command>/HUB<location>/<NAME><number>.
	ErrInvalidTopic = errors.New("usbhub: invalid command topic")

	// ErrUnknownHub is returned when a command names a hub location that
	// is not in the current snapshot.
	ErrUnknownHub = errors.New("usbhub: unknown hub")

	// ErrUnknownPort is returned when a command names a port the hub did
	// not report.
	ErrUnknownPort = errors.New("usbhub: unknown port")
)
