// uhubctl-mqtt exposes the per-port power switching of USB smart hubs over
// MQTT.
//
// At startup it reads every hub through uhubctl, publishes one retained state
// message per hub and announces itself Online. It then switches ports on
// POWER commands and republishes the affected hub.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nerrad567/uhubctl-mqtt/internal/api"
	"github.com/nerrad567/uhubctl-mqtt/internal/bridges/usbhub"
	"github.com/nerrad567/uhubctl-mqtt/internal/infrastructure/config"
	"github.com/nerrad567/uhubctl-mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/uhubctl-mqtt/internal/infrastructure/mqtt"
	"github.com/nerrad567/uhubctl-mqtt/internal/process"
	"github.com/nerrad567/uhubctl-mqtt/internal/uhubctl"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// EnvPrefix is the environment prefix for command-line settings.
const EnvPrefix = "UHUBCTL_MQTT"

// options are the command-line settings after flag and environment merging.
type options struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the root command. Flags are bound through a private
// viper instance, so UHUBCTL_MQTT_CONFIG and UHUBCTL_MQTT_LOG override the
// defaults and explicit flags override both.
func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "uhubctl-mqtt",
		Short:         "Bridge USB hub port power between uhubctl and MQTT",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), options{
				ConfigPath: v.GetString("config"),
				LogLevel:   v.GetString("log"),
			})
		},
	}

	cmd.Flags().StringP("config", "c", config.DefaultOptionsPath, "Location of the JSON options file")
	cmd.Flags().String("log", "", "Override the log level (debug, info, warn, error)")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(cmd.Flags())

	return cmd
}

// run is the actual application logic, separated from main for testability.
//
// Startup aborts on invalid configuration, an unreachable or refusing broker,
// or a failed initial hub fetch. After that the bridge serves until ctx is
// cancelled.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting uhubctl-mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.LogLevel)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", closeErr)
		}
	}()
	log.Info("configuration loaded",
		"path", opts.ConfigPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	invoker := process.NewInvoker(cfg.UhubctlTimeout())
	invoker.SetLogger(log.With("component", "process"))

	controller := uhubctl.NewController(invoker, cfg.Uhubctl.Path)
	controller.SetLogger(log.With("component", "uhubctl"))

	// Connect to MQTT broker. The will marks the bridge Offline if the
	// connection drops without a clean disconnect.
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.Will{
		Topic:    cfg.Topics.Availability,
		Payload:  usbhub.PayloadOffline,
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"tls", cfg.MQTT.Broker.TLS,
	)

	bridge, err := usbhub.NewBridge(usbhub.BridgeOptions{
		Topics: usbhub.Topics{
			Availability: cfg.Topics.Availability,
			Status:       cfg.Topics.Status,
			Command:      cfg.Topics.Command,
		},
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Controller: controller,
		Logger:     log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if cfg.Metrics.Listen != "" {
		statusServer, apiErr := api.New(api.Deps{
			Listen:  cfg.Metrics.Listen,
			Logger:  log.With("component", "api"),
			Bridge:  bridge,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating status server: %w", apiErr)
		}
		if apiErr = statusServer.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting status server: %w", apiErr)
		}
		defer func() {
			if closeErr := statusServer.Close(); closeErr != nil {
				log.Error("error closing status server", "error", closeErr)
			}
		}()
	}

	mqttClient.SetOnReconnect(bridge.HandleReconnect)
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Bridge (publishes Offline)
	// 2. Status server (if enabled)
	// 3. MQTT
	// 4. Log output

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The primary difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements usbhub.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements usbhub.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers log their own failures)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements usbhub.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
