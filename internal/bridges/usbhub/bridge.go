package usbhub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
)

// MQTT delivery settings for every publish and subscription.
const (
	qosAtLeastOnce byte = 1
	retained            = true
)

// Bridge connects the hub snapshot to MQTT.
// It handles:
//   - Fetching all hubs on connect and publishing their retained state
//   - Switching port power on POWER command messages
//   - Availability on the configured topic
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	topics Topics
	mqtt   MQTTClient
	ctrl   HubController
	now    func() time.Time

	// Snapshot, replaced wholesale on refresh. mu is held for the whole
	// lookup → action → publish and refresh → publish cycles.
	hubs       []*uhubctl.Hub
	byLocation map[string]*uhubctl.Hub
	stopped    bool
	mu         sync.Mutex

	// view is a copy of the snapshot taken at the end of every cycle, so
	// readers never wait for a uhubctl run.
	view   []*uhubctl.Hub
	viewMu sync.RWMutex

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client satisfies it through a thin adapter in main.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// HubController reads and switches hubs. *uhubctl.Controller satisfies it.
type HubController interface {
	FetchAll(ctx context.Context) ([]*uhubctl.Hub, error)
	SetPower(ctx context.Context, port *uhubctl.Port, action string) error
}

// Logger defines the logging interface for the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Topics are the configured topic prefixes. All three are required.
	Topics Topics

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Controller runs uhubctl.
	Controller HubController

	// Logger is optional structured logger.
	Logger Logger

	// Clock stamps state payloads. Defaults to time.Now.
	Clock func() time.Time
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, errors.New("MQTT client is required")
	}
	if opts.Controller == nil {
		return nil, errors.New("hub controller is required")
	}
	if opts.Topics.Availability == "" || opts.Topics.Status == "" || opts.Topics.Command == "" {
		return nil, errors.New("availability, status and command topics are required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		topics:     opts.Topics,
		mqtt:       opts.MQTTClient,
		ctrl:       opts.Controller,
		now:        clock,
		byLocation: make(map[string]*uhubctl.Hub),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}, nil
}

// Start subscribes to commands, fetches every hub, publishes their state and
// then announces Online.
//
// A failed initial fetch is returned without publishing Online.
func (b *Bridge) Start(ctx context.Context) error {
	commandTopic := CommandSubscribeTopic(b.topics.Command)
	if err := b.mqtt.Subscribe(commandTopic, qosAtLeastOnce, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	if err := b.refresh(ctx); err != nil {
		return fmt.Errorf("initial hub refresh: %w", err)
	}

	if err := b.publishAvailability(PayloadOnline); err != nil {
		b.logError("failed to publish online status", err)
	}

	b.logInfo("bridge started", "hubs", len(b.Hubs()))
	return nil
}

// HandleReconnect runs the connect sequence again after the MQTT client has
// re-established its session. The client restores the command subscription
// itself.
//
// If the fetch fails the previous snapshot stays in place and Online is not
// republished; the broker keeps the Offline will until the next reconnect.
func (b *Bridge) HandleReconnect() {
	if b.ctx.Err() != nil {
		return
	}

	if err := b.refresh(b.ctx); err != nil {
		b.logError("hub refresh after reconnect failed, keeping previous snapshot", err)
		return
	}

	if err := b.publishAvailability(PayloadOnline); err != nil {
		b.logError("failed to publish online status", err)
		return
	}
	b.logInfo("bridge resumed after reconnect")
}

// Stop cancels in-flight uhubctl calls, waits for the current cycle to finish
// and publishes Offline. A clean disconnect does not trigger the broker's
// will, so the bridge publishes it itself.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()

		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()

		if b.mqtt.IsConnected() {
			if err := b.publishAvailability(PayloadOffline); err != nil {
				b.logError("failed to publish offline status", err)
			}
		}

		b.logInfo("bridge stopped")
	})
}

// Hubs returns a copy of the snapshot as of the last completed cycle, in the
// order uhubctl reported the hubs. It does not wait for a running command.
func (b *Bridge) Hubs() []*uhubctl.Hub {
	b.viewMu.RLock()
	defer b.viewMu.RUnlock()

	hubs := make([]*uhubctl.Hub, len(b.view))
	for i, hub := range b.view {
		hubs[i] = hub.Clone()
	}
	return hubs
}

// Hub returns a copy of the hub at location as of the last completed cycle,
// or nil if it is not in the snapshot.
func (b *Bridge) Hub(location string) *uhubctl.Hub {
	b.viewMu.RLock()
	defer b.viewMu.RUnlock()

	for _, hub := range b.view {
		if hub.Location == location {
			return hub.Clone()
		}
	}
	return nil
}

// updateView copies the snapshot for readers. Caller must hold b.mu.
func (b *Bridge) updateView() {
	view := make([]*uhubctl.Hub, len(b.hubs))
	for i, hub := range b.hubs {
		view[i] = hub.Clone()
	}

	b.viewMu.Lock()
	b.view = view
	b.viewMu.Unlock()
}

// Connected reports whether the MQTT client currently has a broker session.
func (b *Bridge) Connected() bool {
	return b.mqtt.IsConnected()
}

// refresh fetches every hub, replaces the snapshot and publishes all states.
// On error the snapshot is left untouched.
func (b *Bridge) refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	hubs, err := b.ctrl.FetchAll(ctx)
	registerRefresh(err)
	if err != nil {
		return err
	}

	b.replaceSnapshot(hubs)
	b.updateView()
	registerSnapshot(b.hubs)

	for _, hub := range b.hubs {
		b.publishState(hub)
	}
	return nil
}

// replaceSnapshot installs a new snapshot. If a location repeats, the first
// block wins. Caller must hold b.mu.
func (b *Bridge) replaceSnapshot(hubs []*uhubctl.Hub) {
	byLocation := make(map[string]*uhubctl.Hub, len(hubs))
	ordered := make([]*uhubctl.Hub, 0, len(hubs))

	for _, hub := range hubs {
		if _, dup := byLocation[hub.Location]; dup {
			b.logWarn("duplicate hub location in status output", "hub", hub.Location)
			continue
		}
		byLocation[hub.Location] = hub
		ordered = append(ordered, hub)

		b.logDebug("hub discovered",
			"hub", hub.Location,
			"vid", fmt.Sprintf("%04x", hub.VendorID),
			"pid", fmt.Sprintf("%04x", hub.ProductID),
			"usb_version", hub.USBVersion,
			"ports", len(hub.Ports))
	}

	b.hubs = ordered
	b.byLocation = byLocation
}

// handleMQTTMessage is the subscription handler for <command>/#.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	b.logInfo("command received", "topic", topic, "payload", string(payload))

	cmd, err := ParseCommandTopic(b.topics.Command, topic)
	if err != nil {
		registerCommand(err)
		b.logError("ignoring command", err)
		return
	}

	if cmd.Name != CommandPower {
		commandsCounter.WithLabelValues(resultIgnored).Inc()
		b.logDebug("ignoring unsupported command", "command", cmd.Name, "topic", topic)
		return
	}

	b.handlePower(cmd, string(payload))
}

// handlePower switches one port and republishes its hub, whatever the
// outcome of the switch.
func (b *Bridge) handlePower(cmd Command, action string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		b.logDebug("bridge stopped, dropping command", "hub", cmd.Location, "port", cmd.Number)
		return
	}

	hub, port, err := b.lookup(cmd.Location, cmd.Number)
	if err != nil {
		registerCommand(err)
		b.logError("command for unknown target", err)
		return
	}

	err = b.ctrl.SetPower(b.ctx, port, action)
	registerCommand(err)
	if err != nil {
		b.logError("port power command failed", fmt.Errorf("hub %s port %d: %w", hub.Location, port.Number, err))
	}

	b.updateView()
	registerHub(hub)
	b.publishState(hub)
}

// lookup finds a hub and port in the snapshot. Caller must hold b.mu.
func (b *Bridge) lookup(location string, number int) (*uhubctl.Hub, *uhubctl.Port, error) {
	hub, ok := b.byLocation[location]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownHub, location)
	}

	port := hub.Port(number)
	if port == nil {
		return nil, nil, fmt.Errorf("%w: hub %s port %d", ErrUnknownPort, location, number)
	}

	return hub, port, nil
}

// publishState publishes the retained state of one hub. Caller must hold b.mu.
func (b *Bridge) publishState(hub *uhubctl.Hub) {
	payload, err := StatePayload(hub, b.now())
	if err != nil {
		b.logError("failed to encode hub state", err)
		return
	}

	topic := StateTopic(b.topics.Status, hub.Location)
	if err := b.mqtt.Publish(topic, payload, qosAtLeastOnce, retained); err != nil {
		publishFailures.Inc()
		b.logError("failed to publish hub state", fmt.Errorf("topic %s: %w", topic, err))
		return
	}

	b.logDebug("published hub state", "topic", topic, "payload", string(payload))
}

func (b *Bridge) publishAvailability(payload string) error {
	if err := b.mqtt.Publish(b.topics.Availability, []byte(payload), qosAtLeastOnce, retained); err != nil {
		publishFailures.Inc()
		return err
	}
	b.logInfo("availability published", "topic", b.topics.Availability, "status", payload)
	return nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
