package uhubctl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/uhubctl-mqtt/internal/process"
)

const (
	// DefaultBinary is the uhubctl executable looked up on PATH.
	DefaultBinary = "uhubctl"

	// ResetDelay is passed to uhubctl as -r. The hub needs this long to
	// settle before the new port state can be read back.
	ResetDelay = 100 * time.Millisecond
)

// Action is a requested port power transition.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// ParseAction normalises a power action. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionOn:
		return ActionOn, nil
	case ActionOff:
		return ActionOff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Runner executes a command and captures its output.
// *process.Invoker satisfies this interface.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) (process.Result, error)
}

// Logger defines the logging interface for the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller drives uhubctl.
//
// It does not hold hub state; callers own the Hub and Port values and must
// serialise SetPower calls that target the same Port.
type Controller struct {
	runner Runner
	binary string
	logger Logger
}

// NewController creates a controller that runs binary through runner.
// An empty binary selects DefaultBinary.
func NewController(runner Runner, binary string) *Controller {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Controller{
		runner: runner,
		binary: binary,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// FetchAll runs a full status query and returns every smart hub found.
//
// Returns:
//   - a *process.Error if uhubctl could not be run or timed out
//   - ErrNoHubFound if the output lists no hubs
func (c *Controller) FetchAll(ctx context.Context) ([]*Hub, error) {
	c.logger.Debug("fetching status for all hubs")

	res, err := c.runner.Run(ctx, c.binary)
	if err != nil {
		return nil, fmt.Errorf("fetching hub status: %w", err)
	}
	if res.ExitCode != 0 {
		c.logger.Warn("uhubctl exited non-zero, parsing output anyway",
			"exit_code", res.ExitCode,
		)
	}

	hubs, err := Parse(res.Output, ModeFull)
	if err != nil {
		return nil, fmt.Errorf("fetching hub status: %w", err)
	}

	for _, hub := range hubs {
		for _, port := range hub.Ports {
			c.logger.Debug("port status",
				"hub", hub.Location,
				"port", port.Number,
				"enabled", port.Enabled(),
			)
		}
	}

	return hubs, nil
}

// SetPower switches one port on or off and records the state uhubctl
// reports afterwards in port.
//
// The action is validated before anything runs. If the process fails, or its
// output does not end with a status line for this port, port is left
// unchanged.
//
// Returns:
//   - ErrInvalidAction if action is not "on" or "off"
//   - a *process.Error if uhubctl could not be run or timed out
//   - ErrNoObservation if the resulting port state could not be read back
func (c *Controller) SetPower(ctx context.Context, port *Port, action string) error {
	act, err := ParseAction(action)
	if err != nil {
		return err
	}

	args := []string{
		"-l", port.HubLocation,
		"-p", strconv.Itoa(port.Number),
		"-a", string(act),
		"-r", strconv.FormatInt(ResetDelay.Milliseconds(), 10),
	}

	c.logger.Debug("sending port power command",
		"hub", port.HubLocation,
		"port", port.Number,
		"action", act,
	)

	res, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return fmt.Errorf("setting port power: %w", err)
	}
	if res.ExitCode != 0 {
		c.logger.Warn("uhubctl exited non-zero, parsing output anyway",
			"hub", port.HubLocation,
			"port", port.Number,
			"exit_code", res.ExitCode,
		)
	}

	observed, err := trailingObservation(res.Output, port)
	if err != nil {
		return err
	}

	port.SetEnabled(observed.Enabled())

	if observed.Enabled() != (act == ActionOn) {
		c.logger.Warn("port did not reach requested state",
			"hub", port.HubLocation,
			"port", port.Number,
			"action", act,
			"enabled", observed.Enabled(),
		)
	} else {
		c.logger.Info("port power switched",
			"hub", port.HubLocation,
			"port", port.Number,
			"enabled", observed.Enabled(),
		)
	}

	return nil
}

// trailingObservation extracts the post-action state of port from action
// output. uhubctl prints the status before and after the switch, so later
// blocks win.
//
// Switching a USB 3 hub also switches its USB 2 companion, whose block is
// printed last under a different location. The newest block for port's own
// hub and number is preferred; failing that, the newest block with any port
// line reports the same physical port.
func trailingObservation(output string, port *Port) (*Port, error) {
	hubs, err := Parse(output, ModeAction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoObservation, err)
	}

	for i := len(hubs) - 1; i >= 0; i-- {
		if hubs[i].Location != port.HubLocation {
			continue
		}
		if observed := hubs[i].Port(port.Number); observed != nil {
			return observed, nil
		}
	}

	for i := len(hubs) - 1; i >= 0; i-- {
		if len(hubs[i].Ports) > 0 {
			return hubs[i].Ports[0], nil
		}
	}

	return nil, fmt.Errorf("%w: no port line after %d hub header(s)", ErrNoObservation, len(hubs))
}
