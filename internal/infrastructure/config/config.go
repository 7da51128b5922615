package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultOptionsPath is where the add-on supervisor mounts the options file.
const DefaultOptionsPath = "/data/options.json"

// Config is the root configuration structure for the bridge.
type Config struct {
	Topics  TopicsConfig
	Uhubctl UhubctlConfig
	MQTT    MQTTConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// TopicsConfig holds the MQTT topic prefixes. All three are required.
type TopicsConfig struct {
	// Availability receives retained "Online" / "Offline".
	Availability string

	// Status is the prefix for <Status>/HUB<location>/STATE.
	Status string

	// Command is the prefix for <Command>/HUB<location>/POWER<n>.
	Command string
}

// UhubctlConfig contains settings for running uhubctl.
type UhubctlConfig struct {
	// Path is the uhubctl executable. Default: "uhubctl" (looked up on PATH)
	Path string

	// Timeout bounds every uhubctl run, in seconds. Default: 10
	Timeout int
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig
	Auth      MQTTAuthConfig
	Reconnect MQTTReconnectConfig
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string
	Password string
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int
	MaxDelay     int
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
	File   FileLoggingConfig
}

// FileLoggingConfig contains file-based logging settings.
// Sizes are in megabytes, ages in days.
type FileLoggingConfig struct {
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// MetricsConfig contains the Prometheus listener settings.
type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint (e.g. ":9100").
	// Empty disables the listener.
	Listen string
}

// optionsFile is the on-disk shape of the options file. The supervisor
// writes JSON; a .yaml or .yml file with the same keys is accepted for
// running outside it.
type optionsFile struct {
	AvailabilityTopic string `json:"AVAILABILITY_TOPIC" yaml:"AVAILABILITY_TOPIC"`
	StatusTopic       string `json:"STATUS_TOPIC" yaml:"STATUS_TOPIC"`
	CommandTopic      string `json:"COMMAND_TOPIC" yaml:"COMMAND_TOPIC"`
	UhubctlPath       string `json:"UHUBCTL_PATH" yaml:"UHUBCTL_PATH"`
	UhubctlTimeout    int    `json:"UHUBCTL_TIMEOUT" yaml:"UHUBCTL_TIMEOUT"`
	LogLevel          string `json:"LOG_LEVEL" yaml:"LOG_LEVEL"`
	LogFormat         string `json:"LOG_FORMAT" yaml:"LOG_FORMAT"`
	LogFile           string `json:"LOG_FILE" yaml:"LOG_FILE"`
	MetricsListen     string `json:"METRICS_LISTEN" yaml:"METRICS_LISTEN"`
}

// Environment variables for the broker connection.
const (
	EnvMQTTHost     = "MQTT_HOST"
	EnvMQTTPort     = "MQTT_PORT"
	EnvMQTTUsername = "MQTT_USERNAME"
	EnvMQTTPassword = "MQTT_PASSWORD"
	EnvMQTTClientID = "MQTT_CLIENT_ID"
	EnvMQTTTLS      = "MQTT_TLS"
)

// Load reads the options file and the MQTT_* environment.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. Options file values (override defaults)
//  3. Environment variables (broker connection)
//
// MQTT_HOST, MQTT_PORT, MQTT_USERNAME and MQTT_PASSWORD must all be set;
// MQTT_PASSWORD and MQTT_USERNAME may be empty for anonymous brokers.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: wrapping ErrInvalidConfig if the file cannot be read or parsed,
//     or if validation fails
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading options file: %w", ErrInvalidConfig, err)
	}

	opts, err := decodeOptions(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing options file %s: %w", ErrInvalidConfig, path, err)
	}
	applyOptions(cfg, opts)

	errs := applyEnv(cfg, lookupEnv)
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return cfg, nil
}

// decodeOptions picks the decoder from the file extension. Anything other
// than .yaml or .yml is parsed as JSON.
func decodeOptions(path string, data []byte) (optionsFile, error) {
	var opts optionsFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return optionsFile{}, err
		}
	default:
		if err := json.Unmarshal(data, &opts); err != nil {
			return optionsFile{}, err
		}
	}

	return opts, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Uhubctl: UhubctlConfig{
			Path:    "uhubctl",
			Timeout: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				ClientID: "uhubctl-mqtt",
			},
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyOptions copies set values from the options file over the defaults.
func applyOptions(cfg *Config, opts optionsFile) {
	cfg.Topics = TopicsConfig{
		Availability: strings.TrimSpace(opts.AvailabilityTopic),
		Status:       strings.TrimRight(strings.TrimSpace(opts.StatusTopic), "/"),
		Command:      strings.TrimRight(strings.TrimSpace(opts.CommandTopic), "/"),
	}

	if opts.UhubctlPath != "" {
		cfg.Uhubctl.Path = opts.UhubctlPath
	}
	if opts.UhubctlTimeout != 0 {
		cfg.Uhubctl.Timeout = opts.UhubctlTimeout
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(opts.LogFormat)
	}
	if opts.LogFile != "" {
		cfg.Logging.Output = "file"
		cfg.Logging.File.Path = opts.LogFile
	}
	cfg.Metrics.Listen = opts.MetricsListen
}

// applyEnv reads the broker connection from the environment and returns one
// message per missing or malformed variable.
func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) []string {
	var errs []string

	required := func(key string, allowEmpty bool) string {
		v, ok := lookupEnv(key)
		switch {
		case !ok:
			errs = append(errs, key+" environment variable is required")
		case v == "" && !allowEmpty:
			errs = append(errs, key+" environment variable must not be empty")
		}
		return v
	}

	cfg.MQTT.Broker.Host = required(EnvMQTTHost, false)
	if v := required(EnvMQTTPort, false); v != "" {
		port, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("%s must be an integer, got %q", EnvMQTTPort, v))
		case port < 1 || port > 65535:
			errs = append(errs, fmt.Sprintf("%s must be between 1 and 65535, got %d", EnvMQTTPort, port))
		default:
			cfg.MQTT.Broker.Port = port
		}
	}
	cfg.MQTT.Auth.Username = required(EnvMQTTUsername, true)
	cfg.MQTT.Auth.Password = required(EnvMQTTPassword, true)

	if v, ok := lookupEnv(EnvMQTTClientID); ok && v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v, ok := lookupEnv(EnvMQTTTLS); ok && v != "" {
		tls, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a boolean, got %q", EnvMQTTTLS, v))
		} else {
			cfg.MQTT.Broker.TLS = tls
		}
	}

	return errs
}

// validate checks required fields and ranges.
func (c *Config) validate() []string {
	var errs []string

	if c.Topics.Availability == "" {
		errs = append(errs, "AVAILABILITY_TOPIC is required")
	}
	if c.Topics.Status == "" {
		errs = append(errs, "STATUS_TOPIC is required")
	}
	if c.Topics.Command == "" {
		errs = append(errs, "COMMAND_TOPIC is required")
	}
	topics := []struct{ name, value string }{
		{"AVAILABILITY_TOPIC", c.Topics.Availability},
		{"STATUS_TOPIC", c.Topics.Status},
		{"COMMAND_TOPIC", c.Topics.Command},
	}
	for _, topic := range topics {
		if strings.ContainsAny(topic.value, "+#") {
			errs = append(errs, topic.name+" must not contain MQTT wildcards")
		}
	}

	if c.Uhubctl.Timeout < 1 {
		errs = append(errs, "UHUBCTL_TIMEOUT must be at least 1 second")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL %q must be debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT %q must be json or text", c.Logging.Format))
	}

	return errs
}

// UhubctlTimeout returns the uhubctl timeout as a Duration.
func (c *Config) UhubctlTimeout() time.Duration {
	return time.Duration(c.Uhubctl.Timeout) * time.Second
}
