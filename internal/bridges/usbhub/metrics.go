package usbhub

import (
	"errors"
	"strconv"

	"github.com/nerrad567/uhubctl-mqtt/internal/process"
	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
	"github.com/prometheus/client_golang/prometheus"
)

// Command result labels.
const (
	resultOK            = "ok"
	resultIgnored       = "ignored"
	resultInvalidTopic  = "invalid_topic"
	resultUnknownHub    = "unknown_hub"
	resultUnknownPort   = "unknown_port"
	resultInvalidAction = "invalid_action"
	resultTimeout       = "timeout"
	resultSpawn         = "spawn"
	resultNoObservation = "no_observation"
	resultFailed        = "failed"
)

var commandsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "uhubctl",
		Subsystem: "bridge",
		Name:      "commands_total",
		Help:      "Total number of command messages handled, by result.",
	}, []string{"result"},
)

var refreshCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "uhubctl",
		Subsystem: "bridge",
		Name:      "refreshes_total",
		Help:      "Total number of full hub status refreshes, by result.",
	}, []string{"result"},
)

var publishFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "uhubctl",
		Subsystem: "bridge",
		Name:      "publish_failures_total",
		Help:      "Total number of MQTT publishes that failed.",
	},
)

var knownHubs = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "uhubctl",
		Subsystem: "bridge",
		Name:      "hubs",
		Help:      "Number of hubs in the current snapshot.",
	},
)

var portPower = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "uhubctl",
		Subsystem: "bridge",
		Name:      "port_powered",
		Help:      "Last observed port power state (1 on, 0 off).",
	}, []string{"hub", "port"},
)

// commandResult maps a command outcome to its metric label.
func commandResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrInvalidTopic):
		return resultInvalidTopic
	case errors.Is(err, ErrUnknownHub):
		return resultUnknownHub
	case errors.Is(err, ErrUnknownPort):
		return resultUnknownPort
	case errors.Is(err, uhubctl.ErrInvalidAction):
		return resultInvalidAction
	case errors.Is(err, process.ErrTimeout):
		return resultTimeout
	case errors.Is(err, process.ErrSpawn):
		return resultSpawn
	case errors.Is(err, uhubctl.ErrNoObservation):
		return resultNoObservation
	default:
		return resultFailed
	}
}

func registerCommand(err error) {
	commandsCounter.WithLabelValues(commandResult(err)).Inc()
}

func registerRefresh(err error) {
	result := resultOK
	if err != nil {
		result = commandResult(err)
	}
	refreshCounter.WithLabelValues(result).Inc()
}

// registerSnapshot replaces the per-port gauges with the given hubs.
func registerSnapshot(hubs []*uhubctl.Hub) {
	knownHubs.Set(float64(len(hubs)))
	portPower.Reset()
	for _, hub := range hubs {
		registerHub(hub)
	}
}

func registerHub(hub *uhubctl.Hub) {
	for _, port := range hub.Ports {
		value := 0.0
		if port.Enabled() {
			value = 1
		}
		portPower.WithLabelValues(hub.Location, strconv.Itoa(port.Number)).Set(value)
	}
}

func init() {
	prometheus.MustRegister(commandsCounter)
	prometheus.MustRegister(refreshCounter)
	prometheus.MustRegister(publishFailures)
	prometheus.MustRegister(knownHubs)
	prometheus.MustRegister(portPower)
}
