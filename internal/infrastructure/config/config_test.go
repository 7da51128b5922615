package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validOptions = `{
	"AVAILABILITY_TOPIC": "home/usbhub/status",
	"STATUS_TOPIC": "home/usbhub/stat",
	"COMMAND_TOPIC": "home/usbhub/cmnd"
}`

func writeOptions(t *testing.T, content string) string {
	t.Helper()
	return writeOptionsFile(t, "options.json", content)
}

func writeOptionsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test options: %v", err)
	}
	return path
}

// envMap returns a lookup function backed by a map, so tests can model
// unset variables.
func envMap(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func validEnv() map[string]string {
	return map[string]string{
		EnvMQTTHost:     "core-mosquitto",
		EnvMQTTPort:     "1883",
		EnvMQTTUsername: "addons",
		EnvMQTTPassword: "secret",
	}
}

func TestLoad_ValidOptions(t *testing.T) {
	path := writeOptions(t, validOptions)

	cfg, err := load(path, envMap(validEnv()))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Topics.Availability != "home/usbhub/status" {
		t.Errorf("Topics.Availability = %q", cfg.Topics.Availability)
	}
	if cfg.Topics.Status != "home/usbhub/stat" {
		t.Errorf("Topics.Status = %q", cfg.Topics.Status)
	}
	if cfg.Topics.Command != "home/usbhub/cmnd" {
		t.Errorf("Topics.Command = %q", cfg.Topics.Command)
	}
	if cfg.MQTT.Broker.Host != "core-mosquitto" || cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT broker = %s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "addons" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT auth = %+v", cfg.MQTT.Auth)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeOptions(t, validOptions)

	cfg, err := load(path, envMap(validEnv()))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Uhubctl.Path != "uhubctl" {
		t.Errorf("Uhubctl.Path = %q, want uhubctl", cfg.Uhubctl.Path)
	}
	if cfg.UhubctlTimeout() != 10*time.Second {
		t.Errorf("UhubctlTimeout() = %v, want 10s", cfg.UhubctlTimeout())
	}
	if cfg.MQTT.Broker.ClientID != "uhubctl-mqtt" {
		t.Errorf("ClientID = %q", cfg.MQTT.Broker.ClientID)
	}
	if cfg.MQTT.Broker.TLS {
		t.Error("TLS should default to false")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Listen != "" {
		t.Errorf("Metrics.Listen = %q, want disabled", cfg.Metrics.Listen)
	}
}

func TestLoad_OptionalOptions(t *testing.T) {
	content := `{
		"AVAILABILITY_TOPIC": "a",
		"STATUS_TOPIC": "s/",
		"COMMAND_TOPIC": "c",
		"UHUBCTL_PATH": "/usr/sbin/uhubctl",
		"UHUBCTL_TIMEOUT": 30,
		"LOG_LEVEL": "DEBUG",
		"LOG_FORMAT": "text",
		"LOG_FILE": "/data/bridge.log",
		"METRICS_LISTEN": ":9100"
	}`
	path := writeOptions(t, content)

	env := validEnv()
	env[EnvMQTTClientID] = "hub-bridge-2"
	env[EnvMQTTTLS] = "true"

	cfg, err := load(path, envMap(env))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Topics.Status != "s" {
		t.Errorf("Topics.Status = %q, want trailing slash trimmed", cfg.Topics.Status)
	}
	if cfg.Uhubctl.Path != "/usr/sbin/uhubctl" {
		t.Errorf("Uhubctl.Path = %q", cfg.Uhubctl.Path)
	}
	if cfg.UhubctlTimeout() != 30*time.Second {
		t.Errorf("UhubctlTimeout() = %v", cfg.UhubctlTimeout())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Logging.Output != "file" || cfg.Logging.File.Path != "/data/bridge.log" {
		t.Errorf("Logging file = %s %q", cfg.Logging.Output, cfg.Logging.File.Path)
	}
	if cfg.Metrics.Listen != ":9100" {
		t.Errorf("Metrics.Listen = %q", cfg.Metrics.Listen)
	}
	if cfg.MQTT.Broker.ClientID != "hub-bridge-2" || !cfg.MQTT.Broker.TLS {
		t.Errorf("Broker = %+v", cfg.MQTT.Broker)
	}
}

func TestLoad_EscapedSlashes(t *testing.T) {
	path := writeOptions(t, `{
	"AVAILABILITY_TOPIC": "home\/usbhub\/status",
	"STATUS_TOPIC": "home\/usbhub\/stat\/",
	"COMMAND_TOPIC": "home\/usbhub\/cmnd"
}`)

	cfg, err := load(path, envMap(validEnv()))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Topics.Availability != "home/usbhub/status" {
		t.Errorf("Topics.Availability = %q", cfg.Topics.Availability)
	}
	if cfg.Topics.Status != "home/usbhub/stat" {
		t.Errorf("Topics.Status = %q", cfg.Topics.Status)
	}
	if cfg.Topics.Command != "home/usbhub/cmnd" {
		t.Errorf("Topics.Command = %q", cfg.Topics.Command)
	}
}

func TestLoad_OptionsByExtension(t *testing.T) {
	yamlContent := `
AVAILABILITY_TOPIC: a
STATUS_TOPIC: s
COMMAND_TOPIC: c
UHUBCTL_TIMEOUT: 5
`
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{name: "json", file: "options.json", content: validOptions},
		{name: "yaml", file: "options.yaml", content: yamlContent},
		{name: "yml upper case", file: "OPTIONS.YML", content: yamlContent},
		{name: "yaml in json file", file: "options.json", content: yamlContent, wantErr: true},
		{name: "no extension is json", file: "options", content: validOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOptionsFile(t, tt.file, tt.content)

			cfg, err := load(path, envMap(validEnv()))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("load() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("load() error = %v", err)
			}
			if cfg.Topics.Availability == "" {
				t.Error("Topics.Availability is empty")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load("/nonexistent/options.json", envMap(validEnv()))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeOptions(t, `{"AVAILABILITY_TOPIC": [`)

	_, err := load(path, envMap(validEnv()))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_MissingTopics(t *testing.T) {
	path := writeOptions(t, `{"STATUS_TOPIC": "s"}`)

	_, err := load(path, envMap(validEnv()))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("load() error = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{"AVAILABILITY_TOPIC", "COMMAND_TOPIC"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if strings.Contains(err.Error(), "STATUS_TOPIC is required") {
		t.Errorf("error %q reports STATUS_TOPIC although it is set", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(env map[string]string)
		wantErr string
	}{
		{
			name:    "missing host",
			mutate:  func(env map[string]string) { delete(env, EnvMQTTHost) },
			wantErr: "MQTT_HOST environment variable is required",
		},
		{
			name:    "empty host",
			mutate:  func(env map[string]string) { env[EnvMQTTHost] = "" },
			wantErr: "MQTT_HOST environment variable must not be empty",
		},
		{
			name:    "missing port",
			mutate:  func(env map[string]string) { delete(env, EnvMQTTPort) },
			wantErr: "MQTT_PORT environment variable is required",
		},
		{
			name:    "non-integer port",
			mutate:  func(env map[string]string) { env[EnvMQTTPort] = "mqtt" },
			wantErr: "MQTT_PORT must be an integer",
		},
		{
			name:    "port out of range",
			mutate:  func(env map[string]string) { env[EnvMQTTPort] = "70000" },
			wantErr: "MQTT_PORT must be between 1 and 65535",
		},
		{
			name:    "missing username",
			mutate:  func(env map[string]string) { delete(env, EnvMQTTUsername) },
			wantErr: "MQTT_USERNAME environment variable is required",
		},
		{
			name:    "missing password",
			mutate:  func(env map[string]string) { delete(env, EnvMQTTPassword) },
			wantErr: "MQTT_PASSWORD environment variable is required",
		},
		{
			name:    "bad tls flag",
			mutate:  func(env map[string]string) { env[EnvMQTTTLS] = "maybe" },
			wantErr: "MQTT_TLS must be a boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOptions(t, validOptions)
			env := validEnv()
			tt.mutate(env)

			_, err := load(path, envMap(env))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("load() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("load() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_AnonymousBroker(t *testing.T) {
	path := writeOptions(t, validOptions)
	env := validEnv()
	env[EnvMQTTUsername] = ""
	env[EnvMQTTPassword] = ""

	cfg, err := load(path, envMap(env))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.MQTT.Auth.Username != "" {
		t.Errorf("Username = %q, want empty", cfg.MQTT.Auth.Username)
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	path := writeOptions(t, `{}`)

	_, err := load(path, envMap(map[string]string{}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("load() error = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{"MQTT_HOST", "MQTT_PORT", "MQTT_USERNAME", "MQTT_PASSWORD", "AVAILABILITY_TOPIC", "STATUS_TOPIC", "COMMAND_TOPIC"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "wildcard in command topic",
			modify:  func(c *Config) { c.Topics.Command = "cmd/#" },
			wantErr: "COMMAND_TOPIC must not contain MQTT wildcards",
		},
		{
			name:    "wildcard in status topic",
			modify:  func(c *Config) { c.Topics.Status = "stat/+" },
			wantErr: "STATUS_TOPIC must not contain MQTT wildcards",
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Uhubctl.Timeout = -1 },
			wantErr: "UHUBCTL_TIMEOUT",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Topics = TopicsConfig{Availability: "a", Status: "s", Command: "c"}
			tt.modify(cfg)

			errs := cfg.validate()
			if len(errs) == 0 {
				t.Fatal("validate() returned no errors")
			}
			if !strings.Contains(strings.Join(errs, "; "), tt.wantErr) {
				t.Errorf("validate() = %v, want %q", errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDefaults(t *testing.T) {
	cfg := defaultConfig()
	cfg.Topics = TopicsConfig{Availability: "a", Status: "s", Command: "c"}

	if errs := cfg.validate(); len(errs) != 0 {
		t.Errorf("validate() = %v, want none", errs)
	}
}

func TestLoad_RealEnvironment(t *testing.T) {
	for k, v := range validEnv() {
		t.Setenv(k, v)
	}
	path := writeOptions(t, validOptions)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Broker.Host != "core-mosquitto" {
		t.Errorf("Host = %q", cfg.MQTT.Broker.Host)
	}
}
