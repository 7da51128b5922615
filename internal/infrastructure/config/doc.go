// Package config loads the bridge configuration.
//
// Settings come from three places, later ones winning:
//   - Default values (hardcoded)
//   - The options file, a flat JSON object with upper-case keys
//   - MQTT_* environment variables for the broker connection
//
// The options file is decoded with a YAML parser; any JSON object is valid
// YAML, so both formats are accepted.
//
// Security Considerations:
//   - Broker credentials only come from the environment, never the file
//
// Usage:
//
//	cfg, err := config.Load("/data/options.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topics.Command)
package config
