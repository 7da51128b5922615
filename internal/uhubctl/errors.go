package uhubctl

import "errors"

// Domain errors for the uhubctl package.
var (
	// ErrNoHubFound is returned when the output contains no recognisable
	// hub header. A hub with zero ports is a valid result, not this error.
	ErrNoHubFound = errors.New("uhubctl: no smart hub found in output")

	// ErrInvalidAction is returned when a power action is not "on" or "off".
	ErrInvalidAction = errors.New("uhubctl: invalid power action")

	// ErrNoObservation is returned when an action's output does not end with
	// a status line for the requested port, so the resulting state is unknown.
	ErrNoObservation = errors.New("uhubctl: action output has no status for the port")
)
